package secret

// Outcome names the path a decode took.
type Outcome string

const (
	OutcomeCurrent   Outcome = "current"
	OutcomeLegacy    Outcome = "legacy"
	OutcomePlaintext Outcome = "plaintext"
	OutcomeNone      Outcome = "none"
)

// Observer receives one call per Encode and one per Decrypt or FromString.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveEncode(err error)
	ObserveDecode(outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) ObserveEncode(error)   {}
func (nopObserver) ObserveDecode(Outcome) {}
