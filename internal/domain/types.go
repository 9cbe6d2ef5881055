package domain

// RecordingData is the recitation payload submitted by the UI. Audio content
// travels as a base64 string so the record survives JSON round-trips intact.
type RecordingData struct {
	SurahName string  `json:"surah_name"`
	AyahStart int     `json:"ayah_start"`
	AyahEnd   int     `json:"ayah_end"`
	AudioData string  `json:"audio_data"`
	Duration  float64 `json:"duration,omitempty"`
}

// MarkerData is a timestamped annotation on an existing recitation.
type MarkerData struct {
	RecitationID int64   `json:"recitation_id"`
	Timestamp    float64 `json:"timestamp"`
	Label        string  `json:"label"`
	Description  string  `json:"description,omitempty"`
}

// PendingRecording is a recording queued locally because immediate network
// submission did not succeed. The token is captured at enqueue time and is
// never refreshed.
type PendingRecording struct {
	ID        string        `json:"id"`
	Data      RecordingData `json:"data"`
	Token     string        `json:"token"`
	Timestamp int64         `json:"timestamp"` // unix millis at enqueue
}

// PendingMarker is the marker counterpart of PendingRecording, with the same
// lifecycle rules.
type PendingMarker struct {
	ID        string     `json:"id"`
	Data      MarkerData `json:"data"`
	Token     string     `json:"token"`
	Timestamp int64      `json:"timestamp"`
}

// StatusPending marks locally-synthesized placeholder records that have not
// been confirmed by the server yet.
const StatusPending = "pending"

// Recitation is the server-side recitation record. Placeholders returned for
// queued submissions carry StatusPending and the full pending-item id in
// PendingID; their numeric ID is the millisecond prefix of the pending id.
type Recitation struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	SurahName string  `json:"surah_name"`
	AyahStart int     `json:"ayah_start"`
	AyahEnd   int     `json:"ayah_end"`
	AudioData string  `json:"audio_data,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	PendingID string  `json:"pending_id,omitempty"`
}

type Marker struct {
	ID           int64   `json:"id"`
	RecitationID int64   `json:"recitation_id"`
	Timestamp    float64 `json:"timestamp"`
	Label        string  `json:"label"`
	Description  string  `json:"description,omitempty"`
	Status       string  `json:"status,omitempty"`
	PendingID    string  `json:"pending_id,omitempty"`
}

type Comment struct {
	ID           int64   `json:"id"`
	RecitationID int64   `json:"recitation_id"`
	UserID       int64   `json:"user_id"`
	Timestamp    float64 `json:"timestamp"`
	TextComment  string  `json:"text_comment,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// CommentSet is one cachedComments row: the full comment list for a
// recitation, replaced wholesale on every cache write.
type CommentSet struct {
	ID           string    `json:"id"`
	RecitationID int64     `json:"recitation_id"`
	Comments     []Comment `json:"comments"`
	Timestamp    int64     `json:"timestamp"`
}
