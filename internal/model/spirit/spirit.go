package spirit

// Request asks the spirit a question on behalf of one participant.
type Request struct {
	SessionID      string   `json:"session_id" validate:"required"`
	Question       string   `json:"question" validate:"required,min=1,max=500"`
	UserName       string   `json:"user_name"`
	SessionHistory []string `json:"session_history"`
}

// Response is the bounded, animated answer broadcast to a session.
type Response struct {
	Text          string  `json:"text"`
	WordCount     int     `json:"word_count"`
	LetterTimings []int   `json:"letter_timings"`
	AudioURL      *string `json:"audio_url"`
	SessionID     string  `json:"session_id"`
	Question      string  `json:"question"`
}
