package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/gokatarajesh/quizbot/internal/session"
)

func formatSummary(s session.Summary) string {
	var b strings.Builder
	if s.Stopped {
		b.WriteString("🏁 *Quiz stopped!*\n\n")
	} else {
		b.WriteString("🏁 *Quiz finished!*\n\n")
	}
	fmt.Fprintf(&b, "⏱️ Duration: %s\n\n", formatElapsed(s.Elapsed))
	fmt.Fprintf(&b, "📊 Total Questions: %d\n", s.Total)
	fmt.Fprintf(&b, "✅ Correct: %d\n", s.Correct)
	fmt.Fprintf(&b, "❌ Wrong: %d\n", s.Wrong)
	fmt.Fprintf(&b, "⚪ Missed: %d\n", s.Missed)
	fmt.Fprintf(&b, "🚫 Not Attended: %d\n\n", s.NotAttended)
	fmt.Fprintf(&b, "Score: %d/%d", s.Correct, s.Total)
	return b.String()
}

// formatElapsed renders h:mm:ss.
func formatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

func formatTimer(secs int) string {
	if secs%60 == 0 {
		return fmt.Sprintf("%d min", secs/60)
	}
	return fmt.Sprintf("%d sec", secs)
}
