package push

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key: base64url-encoded 65-byte uncompressed P-256 point.
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key: base64url-encoded 32-byte P-256 scalar.
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

// Roughly 1 in 256 P-256 scalars starts with a zero byte. Encoding the
// scalar via big.Int.Bytes would drop it and yield a 31-byte private key
// that push services reject, so generate enough keys to catch truncation.
func TestGenerateVAPIDKeysFixedLength(t *testing.T) {
	for i := 0; i < 1024; i++ {
		_, priv, err := GenerateVAPIDKeys()
		if err != nil {
			t.Fatalf("generate VAPID keys: %v", err)
		}
		privBytes, err := base64.RawURLEncoding.DecodeString(priv)
		if err != nil {
			t.Fatalf("decode private key: %v", err)
		}
		if len(privBytes) != 32 {
			t.Fatalf("private key length = %d, want 32", len(privBytes))
		}
	}
}

func TestPayloadJSON(t *testing.T) {
	p := Payload{
		Title:             "Mood Check-In",
		Body:              "It's time for your Mood Check-In questionnaire again.",
		QuestionnaireType: "mood",
		Tag:               "mood-main",
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded["questionnaire_type"] != "mood" {
		t.Errorf("questionnaire_type = %v, want mood", decoded["questionnaire_type"])
	}
	if _, ok := decoded["notification_id"]; ok {
		t.Error("empty notification_id should be omitted")
	}
}
