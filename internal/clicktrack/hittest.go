package clicktrack

// HitTester decides how tagged markup maps onto click classification.
type HitTester interface {
	// IsTarget reports whether el is an element the participant must click
	// on purpose.
	IsTarget(el *Element) bool
	// IsCard reports whether el is a game card.
	IsCard(el *Element) bool
	// CardID returns the card identifier carried by el, if any.
	CardID(el *Element) (string, bool)
}

// Attribute and class names understood by MarkupHitTester.
const (
	AttrSpirit   = "data-spirit"
	ClassSpirit  = "dungeon-spirit"
	IDSpirit     = "dungeon-spirit"
	AttrCardID   = "data-card-id"
	ClassCard    = "card"
	ClassMemCard = "memory-card"
)

// MarkupHitTester recognizes the game's markup conventions.
type MarkupHitTester struct{}

func (MarkupHitTester) IsTarget(el *Element) bool {
	if el == nil {
		return false
	}
	if _, ok := el.Attr(AttrSpirit); ok {
		return true
	}
	return el.HasClass(ClassSpirit) || el.ID == IDSpirit
}

func (MarkupHitTester) IsCard(el *Element) bool {
	if el == nil {
		return false
	}
	if _, ok := el.Attr(AttrCardID); ok {
		return true
	}
	return el.HasClass(ClassMemCard) || el.HasClass(ClassCard)
}

func (MarkupHitTester) CardID(el *Element) (string, bool) {
	return el.Attr(AttrCardID)
}
