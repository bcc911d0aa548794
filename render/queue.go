package render

import "github.com/lixenwraith/toymaker/resource"

// Queue groups items drawn together; queues run in declaration order
type Queue uint8

const (
	QueueOpaque Queue = iota
	QueueTransparent
	QueueOverlay
	queueCount
)

func (q Queue) String() string {
	switch q {
	case QueueOpaque:
		return "opaque"
	case QueueTransparent:
		return "transparent"
	case QueueOverlay:
		return "overlay"
	}
	return "unknown"
}

// QueueFor maps a material blend mode to its queue
func QueueFor(b resource.Blend) Queue {
	switch b {
	case resource.BlendTransparent:
		return QueueTransparent
	case resource.BlendOverlay:
		return QueueOverlay
	}
	return QueueOpaque
}

// Priority determines draw order within a queue. Lower values render first
// Material and drawable priorities add up
type Priority = int

const (
	PriorityBackground Priority = iota * 10
	PriorityBoard
	PriorityPieces
	PriorityHighlight
	PriorityUI
	PriorityDebug
)
