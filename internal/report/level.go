package report

// Level is the severity of a report. Levels only ever rise while a report is
// built; the order is Info < Warning < Error < Attention < Debug.
type Level int

const (
	Info Level = iota
	Warning
	Error
	Attention
	Debug
)

var levelColors = [...]int{
	Info:      0x808080,
	Warning:   0xFFC800,
	Error:     0xFF0000,
	Attention: 0x00FF00,
	Debug:     0xFF00FF,
}

// Color is the embed color shown for the level.
func (l Level) Color() int {
	if l < Info || l > Debug {
		return levelColors[Info]
	}
	return levelColors[l]
}

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Attention:
		return "attention"
	case Debug:
		return "debug"
	default:
		return "unknown"
	}
}
