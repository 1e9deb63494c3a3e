package session

import (
	"context"
	"time"

	"github.com/stemsi/quizroom-backend/internal/model"
)

// Backend is the set of remote actions a session depends on.
type Backend interface {
	// FetchQuestions returns the full question bank in the order the backend chose.
	FetchQuestions(ctx context.Context) ([]model.Question, error)
	// FetchPriorAttempt reports whether the user already submitted the quiz.
	FetchPriorAttempt(ctx context.Context, userID int) (bool, error)
	// FetchQuizLiveStatus reports whether students may take the quiz right now.
	FetchQuizLiveStatus(ctx context.Context) (bool, error)
	AutoSaveAnswer(ctx context.Context, userID int, questionID, optionID string) error
	RecordStartTime(ctx context.Context, userID int, startedAt time.Time) error
	// SubmitQuiz stores the final answers. The returned string is a
	// human-readable confirmation.
	SubmitQuiz(ctx context.Context, userID int, sub model.Submission) (string, error)
	FetchResults(ctx context.Context, userID int) (*model.QuizResults, error)
}

// View receives everything the student should see that is not part of the
// snapshot itself.
type View interface {
	Toast(n model.Notice)
	// PromptSubmit asks the student to confirm submission.
	PromptSubmit(unanswered int)
	TimeLeft(seconds int)
	// TimeUp shows the terminal time's-up modal.
	TimeUp()
	Redirect(route string)
}

// AntiCheat is the guard a controller turns on for the duration of a session.
type AntiCheat interface {
	SetEnabled(ctx context.Context, enabled bool)
	EndSession(reason string)
}

// EndReasonSubmitted is passed to AntiCheat.EndSession after a successful submission.
const EndReasonSubmitted = "submitted"
