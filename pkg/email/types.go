package email

type Message struct {
	To       []string
	CC       []string
	BCC      []string
	Subject  string
	TextBody string
	HTMLBody string
	Headers  map[string]string
	Inline   []InlineFile
}

// InlineFile is embedded in the message and referenced from HTML as
// cid:<Name>.
type InlineFile struct {
	Name        string
	ContentType string
	Data        []byte
}
