package capture

// StatusSnapshot is the host-visible view of the controller.
type StatusSnapshot struct {
	IsRecording    bool    `json:"is_recording"`
	IsTranscribing bool    `json:"is_transcribing"`
	Progress       float64 `json:"progress"`
}

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is an ephemeral message for the user.
type Notification struct {
	Kind    Kind
	Message string
	// Reason is the failure class for error notifications.
	Reason string
}

// Host receives controller callbacks. Calls may arrive from any goroutine
// but are serialized. Callbacks must not call back into the Controller
// synchronously.
type Host interface {
	OnTranscription(text string)
	OnStatusChange(StatusSnapshot)
	OnNotification(Notification)
}

// HostFuncs adapts plain functions to Host. Nil fields are ignored.
type HostFuncs struct {
	Transcription func(string)
	StatusChange  func(StatusSnapshot)
	Notification  func(Notification)
}

func (h HostFuncs) OnTranscription(text string) {
	if h.Transcription != nil {
		h.Transcription(text)
	}
}

func (h HostFuncs) OnStatusChange(s StatusSnapshot) {
	if h.StatusChange != nil {
		h.StatusChange(s)
	}
}

func (h HostFuncs) OnNotification(n Notification) {
	if h.Notification != nil {
		h.Notification(n)
	}
}
