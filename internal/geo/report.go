package geo

// WaitingMessage is shown while either side has no fix yet.
const WaitingMessage = "Waiting for location data..."

// Report is the distance view between the caller and their partner.
type Report struct {
	Waiting         bool    `json:"waiting"`
	Meters          float64 `json:"meters,omitempty"`
	Formatted       string  `json:"formatted"`
	Message         string  `json:"message"`
	MyAccuracy      string  `json:"my_accuracy,omitempty"`
	PartnerAccuracy string  `json:"partner_accuracy,omitempty"`
}

// Fix is a point with its accuracy radius.
type Fix struct {
	Point
	Accuracy *float64
}

// Measure builds a Report. A missing side yields the waiting state, not an error.
func Measure(mine, partner *Fix) Report {
	if mine == nil || partner == nil {
		return Report{Waiting: true, Message: WaitingMessage}
	}
	meters := DistanceBetween(mine.Point, partner.Point)
	return Report{
		Meters:          meters,
		Formatted:       FormatDistance(meters),
		Message:         ProximityMessage(meters),
		MyAccuracy:      FormatAccuracy(mine.Accuracy),
		PartnerAccuracy: FormatAccuracy(partner.Accuracy),
	}
}
