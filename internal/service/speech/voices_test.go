package speech

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResourceCandidates(t *testing.T) {
	tests := []struct {
		name  string
		voice string
		want  []string
	}{
		{name: "default voice", voice: "", want: []string{resourceDefault, resourceSeed}},
		{name: "mega clone voice", voice: "S_clone_speaker", want: []string{resourceMega}},
		{name: "bigtts voice", voice: "en_male_adam_mars_bigtts", want: []string{resourceSeed, resourceDefault}},
		{name: "legacy voice", voice: "zh_male_organizer", want: []string{resourceDefault, resourceSeed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, resourceCandidates(tt.voice))
		})
	}
}

func TestSpeakerCandidates(t *testing.T) {
	tests := []struct {
		name     string
		request  string
		fallback string
		want     []string
	}{
		{
			name:     "request and fallback",
			request:  "custom-voice",
			fallback: "en_female_amy_jupiter_bigtts",
			want:     []string{"custom-voice", "en_female_amy_jupiter_bigtts"},
		},
		{
			name:     "request empty",
			request:  "",
			fallback: "en_female_amy_jupiter_bigtts",
			want:     []string{"en_female_amy_jupiter_bigtts"},
		},
		{
			name:     "duplicates ignored",
			request:  "EN_voice",
			fallback: "en_voice",
			want:     []string{"EN_voice"},
		},
		{
			name:     "browser voice alias",
			request:  DefaultVoice,
			fallback: "en_female_amy_jupiter_bigtts",
			want:     []string{"en_male_adam_mars_bigtts", "en_female_amy_jupiter_bigtts"},
		},
		{
			name:     "default alias defers to fallback",
			request:  "default",
			fallback: "en_female_amy_jupiter_bigtts",
			want:     []string{"en_female_amy_jupiter_bigtts"},
		},
		{
			name: "nothing configured",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, speakerCandidates(tt.request, tt.fallback))
		})
	}
}

func TestIsResourceMismatch(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "unrelated error", err: fmt.Errorf("some other error"), want: false},
		{name: "sentinel", err: fmt.Errorf("wrap: %w", ErrResourceMismatch), want: true},
		{
			name: "mismatch substring",
			err:  fmt.Errorf(`TTS error: {"error":"resource ID is mismatched with speaker related resource"}`),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isResourceMismatch(tt.err))
		})
	}
}
