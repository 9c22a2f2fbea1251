package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackStep(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxSteps int
		want     int
	}{
		{"no marker defaults to first", "שלום! איך אפשר לעזור?", 8, 1},
		{"plain marker", "שלב 3 מתוך 8\nמה שם הנתבע?", 8, 3},
		{"marker with colon", "שלב: 5 מתוך 8", 8, 5},
		{"last marker wins", "שלב 2 מתוך 8\n...\nשלב 4 מתוך 8", 8, 4},
		{"clamped to max", "שלב 12 מתוך 8", 8, 8},
		{"parking max", "שלב 7 מתוך 6", 6, 6},
		{"zero clamped up", "שלב 0 מתוך 8", 8, 1},
		{"marker mid-sentence", "נהדר. שלב 6 מתוך 8: פרטי בית המשפט", 8, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrackStep(tt.text, tt.maxSteps))
		})
	}
}
