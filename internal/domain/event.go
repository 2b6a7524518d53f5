package domain

// AnnotationKind identifies the rich-text entity type of an Annotation.
type AnnotationKind int

const (
	AnnotationOther AnnotationKind = iota
	AnnotationTextLink
	AnnotationURL
)

// Annotation marks a range of the raw text. Offset and Length count UTF-16 code units.
type Annotation struct {
	Offset int
	Length int
	Kind   AnnotationKind
	URL    string
}

// InboundEvent is a raw message as delivered by the upstream transport.
type InboundEvent struct {
	Peer        PeerRef
	Text        string
	AltText     string
	Caption     string
	Annotations []Annotation
	Date        int64
}
