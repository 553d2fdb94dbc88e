package session

import "fmt"

// NotificationKind identifies what produced a notification.
type NotificationKind string

const (
	KindLevelUp       NotificationKind = "level_up"
	KindVoteRecorded  NotificationKind = "vote_recorded"
	KindQuizCorrect   NotificationKind = "quiz_correct"
	KindQuizIncorrect NotificationKind = "quiz_incorrect"
)

// Notification is a user-facing message derived from a state transition.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Points      int              `json:"points,omitempty"`
	Level       int              `json:"level,omitempty"`
	Destructive bool             `json:"destructive,omitempty"`
}

func levelUp(level int) Notification {
	return Notification{
		Kind:    KindLevelUp,
		Title:   "🎉 Level Up!",
		Message: fmt.Sprintf("Parabéns! Você alcançou o nível %d!", level),
		Level:   level,
	}
}

func voteRecorded(points int) Notification {
	return Notification{
		Kind:    KindVoteRecorded,
		Title:   "Voto registrado!",
		Message: fmt.Sprintf("Você ganhou +%d pontos por participar!", points),
		Points:  points,
	}
}

func quizCorrect(bonus int) Notification {
	return Notification{
		Kind:    KindQuizCorrect,
		Title:   "✅ Resposta Correta!",
		Message: fmt.Sprintf("Você ganhou +%d XP bônus!", bonus),
		Points:  bonus,
	}
}

func quizIncorrect(explanation string) Notification {
	msg := "Continue aprendendo sobre os projetos de lei!"
	if explanation != "" {
		msg = explanation
	}
	return Notification{
		Kind:        KindQuizIncorrect,
		Title:       "❌ Resposta Incorreta",
		Message:     msg,
		Destructive: true,
	}
}
