package types

// Push payload constants
const (
	PushTypeNewJob = "new_job"

	DataJobID        = "jobId"
	DataCategory     = "category"
	DataTitle        = "title"
	DataOrganization = "organization"
	DataType         = "type"
)

// PushNotification is the visible part of a push message.
type PushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

// PushMessage is a push delivered to a topic. Receivers must tolerate a nil
// Notification and missing Data keys.
type PushMessage struct {
	Topic        string            `json:"topic,omitempty"`
	Notification *PushNotification `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// JobID returns the jobId data field, if any.
func (m PushMessage) JobID() string {
	return m.Data[DataJobID]
}

// Category returns the category data field, if any.
func (m PushMessage) Category() string {
	return m.Data[DataCategory]
}

// LocalNotification is a notification shown by the device itself.
type LocalNotification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}
