package render

import (
	"fmt"
	"io"
	"time"
)

type printView struct {
	Card    Card
	DelayMS int64
}

// PrintDocument writes a standalone thermal-printer document holding card,
// without its print control, that opens the print dialog after delay.
func PrintDocument(w io.Writer, card Card, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	view := printView{Card: card, DelayMS: delay.Milliseconds()}
	if err := templates.ExecuteTemplate(w, "print", view); err != nil {
		return fmt.Errorf("render print document: %w", err)
	}
	return nil
}
