package bill

import "fmt"

const quizAnswerLen = 60

const fallbackExplanation = "Este projeto visa melhorar a qualidade de vida dos brasileiros."

// Decoy options. They are deliberately framed as negative civic claims.
var quizDecoys = [QuizOptions - 1]string{
	"Aumentar impostos sobre a população",
	"Reduzir direitos trabalhistas",
	"Privatizar todos os serviços públicos",
}

// GenerateQuiz builds the fallback quiz for a bill without an authored one.
// The correct answer is always option 0, the truncated description, even when
// the description is empty.
func GenerateQuiz(title, simplified string) Quiz {
	explanation := simplified
	if explanation == "" {
		explanation = fallbackExplanation
	}

	options := make([]string, 0, QuizOptions)
	options = append(options, firstRunes(simplified, quizAnswerLen)+EllipsisMarker)
	options = append(options, quizDecoys[:]...)

	return Quiz{
		Question:      fmt.Sprintf("O que o projeto \"%s\" propõe fazer?", title),
		Options:       options,
		CorrectAnswer: 0,
		Explanation:   explanation,
	}
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
