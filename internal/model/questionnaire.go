package model

import "fmt"

// QuestionnaireType identifies one of the fixed set of recurring health
// questionnaires. The set is closed: new types are added here and nowhere else.
type QuestionnaireType string

const (
	// QuestionnaireBaseline is surfaced as a mandatory intake dialog rather
	// than an inbox entry. Its push reminders are still scheduled normally.
	QuestionnaireBaseline  QuestionnaireType = "baseline"
	QuestionnaireMood      QuestionnaireType = "mood"
	QuestionnaireSleep     QuestionnaireType = "sleep"
	QuestionnaireActivity  QuestionnaireType = "activity"
	QuestionnaireNutrition QuestionnaireType = "nutrition"
	QuestionnairePain      QuestionnaireType = "pain"
)

// Registry is the canonical ordered set of questionnaire types known to this
// build. Stored configs from older builds are migrated against it on read.
var Registry = []QuestionnaireType{
	QuestionnaireBaseline,
	QuestionnaireMood,
	QuestionnaireSleep,
	QuestionnaireActivity,
	QuestionnaireNutrition,
	QuestionnairePain,
}

var registrySet = func() map[QuestionnaireType]struct{} {
	m := make(map[QuestionnaireType]struct{}, len(Registry))
	for _, qt := range Registry {
		m[qt] = struct{}{}
	}
	return m
}()

// KnownType reports whether qt is part of the canonical registry.
func KnownType(qt QuestionnaireType) bool {
	_, ok := registrySet[qt]
	return ok
}

// ParseQuestionnaireType validates a raw string against the registry.
func ParseQuestionnaireType(s string) (QuestionnaireType, error) {
	qt := QuestionnaireType(s)
	if !KnownType(qt) {
		return "", fmt.Errorf("unknown questionnaire type %q", s)
	}
	return qt, nil
}

// AlternateChannel reports whether reminders for qt bypass the shared inbox.
func (qt QuestionnaireType) AlternateChannel() bool {
	return qt == QuestionnaireBaseline
}

var displayNames = map[QuestionnaireType]string{
	QuestionnaireBaseline:  "Health Baseline",
	QuestionnaireMood:      "Mood Check-In",
	QuestionnaireSleep:     "Sleep Quality",
	QuestionnaireActivity:  "Physical Activity",
	QuestionnaireNutrition: "Nutrition Diary",
	QuestionnairePain:      "Pain Assessment",
}

// DisplayName returns the human-readable questionnaire name.
func (qt QuestionnaireType) DisplayName() string {
	if name, ok := displayNames[qt]; ok {
		return name
	}
	return string(qt)
}

// ReminderContent builds the title/message pair for a due reminder.
// The first-time variant invites, the recurring variant nudges.
func ReminderContent(qt QuestionnaireType, firstTime bool) (title, message string) {
	title = qt.DisplayName()
	if firstTime {
		message = fmt.Sprintf("Your %s questionnaire is ready. Take a few minutes to fill it in.", qt.DisplayName())
		return title, message
	}
	message = fmt.Sprintf("It's time for your %s questionnaire again.", qt.DisplayName())
	return title, message
}
