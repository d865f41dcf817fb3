package chat

// Attachment keeps file metadata only. Binary content is never retained so
// the persisted state stays small.
type Attachment struct {
	Name     string `json:"name"`
	ByteSize int64  `json:"byteSize"`
	MimeType string `json:"mimeType"`
}
