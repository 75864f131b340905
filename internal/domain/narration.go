package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentDirection is the direction of an original-stock adjustment.
type AdjustmentDirection string

const (
	DirectionIncrease AdjustmentDirection = "Increase"
	DirectionDecrease AdjustmentDirection = "Decrease"
)

// Sign returns +1 for increases and -1 for decreases.
func (d AdjustmentDirection) Sign() decimal.Decimal {
	if d == DirectionDecrease {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// StockAdjustment is one original-stock adjustment. It is persisted as a structured
// side-record keyed by transaction id and rendered into the entry narration.
type StockAdjustment struct {
	CreatedAt     time.Time
	TransactionID string
	Direction     AdjustmentDirection
	TypeName      string
	SupplierName  string
	Reason        string
	Narration     string

	// Bucket key; empty for adjustments recovered from narration text.
	TypeID        string
	SupplierID    string
	SubSupplierID string
	ProductID     string

	// Weight is nil when the adjustment carries no weight ("N/A").
	Weight       *decimal.Decimal
	Worth        decimal.Decimal
	TargetWeight *decimal.Decimal
	TargetWorth  *decimal.Decimal
	Sequence     int64
	LineNo       int
	SetToZero    bool
	ZeroWorth    bool
}

// HasKey reports whether the adjustment names its bucket by id.
func (a *StockAdjustment) HasKey() bool {
	return a.TypeID != "" && a.SupplierID != ""
}

// IsTarget reports whether the adjustment states a final value instead of a delta.
func (a *StockAdjustment) IsTarget() bool {
	return a.TargetWeight != nil || a.TargetWorth != nil || a.ZeroWorth
}

// WeightDelta returns the signed weight change (zero when weight is N/A).
func (a *StockAdjustment) WeightDelta() decimal.Decimal {
	if a.Weight == nil {
		return decimal.Zero
	}
	return a.Weight.Abs().Mul(a.Direction.Sign())
}

// WorthDelta returns the signed worth change.
func (a *StockAdjustment) WorthDelta() decimal.Decimal {
	return a.Worth.Abs().Mul(a.Direction.Sign())
}

const (
	narrationPrefix     = "Original Stock "
	weightOpen          = " (Weight: "
	weightWorthSep      = " kg, Worth: $"
	reasonSep           = " - "
	targetWeightMarker  = "  (Target Weight: "
	targetWorthMarker   = "  (Target Worth: $"
	setToZeroMarker     = "  [SET-TO-ZERO: "
	zeroWorthMarker     = "  [Zero-Worth Adjustment: Stock worth set to $0.00]"
	notApplicableWeight = "N/A"
)

var (
	numberPattern  = `([-+]?[\d,]+(?:\.\d+)?)`
	targetWeightRe = regexp.MustCompile(`\(Target Weight: ` + numberPattern + ` kg\)`)
	targetWorthRe  = regexp.MustCompile(`\(Target Worth: \$` + numberPattern + `\)`)
	setToZeroRe    = regexp.MustCompile(`\[SET-TO-ZERO: Target Weight=` + numberPattern + ` kg, Target Worth=\$` + numberPattern + `\]`)
)

// RenderAdjustmentNarration renders the audit narration of an adjustment.
func RenderAdjustmentNarration(a *StockAdjustment) string {
	weight := notApplicableWeight
	if a.Weight != nil {
		weight = a.WeightDelta().StringFixed(2)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s: %s (%s)%s%s%s%s)%s%s",
		narrationPrefix, a.Direction, a.TypeName, a.SupplierName,
		weightOpen, weight, weightWorthSep, a.Worth.Abs().StringFixed(2),
		reasonSep, a.Reason,
	)

	if a.SetToZero {
		tw, tv := decimal.Zero, decimal.Zero
		if a.TargetWeight != nil {
			tw = *a.TargetWeight
		}
		if a.TargetWorth != nil {
			tv = *a.TargetWorth
		}
		fmt.Fprintf(&b, "%sTarget Weight=%s kg, Target Worth=$%s]", setToZeroMarker, tw.StringFixed(2), tv.StringFixed(2))
	} else {
		if a.TargetWeight != nil {
			fmt.Fprintf(&b, "%s%s kg)", targetWeightMarker, a.TargetWeight.StringFixed(2))
		}
		if a.TargetWorth != nil {
			fmt.Fprintf(&b, "%s%s)", targetWorthMarker, a.TargetWorth.StringFixed(2))
		}
	}

	if a.ZeroWorth {
		b.WriteString(zeroWorthMarker)
	}

	return b.String()
}

// IsAdjustmentNarration reports whether text uses the adjustment grammar.
func IsAdjustmentNarration(text string) bool {
	return strings.HasPrefix(text, narrationPrefix+string(DirectionIncrease)+": ") ||
		strings.HasPrefix(text, narrationPrefix+string(DirectionDecrease)+": ")
}

// ParseAdjustmentNarration decodes an adjustment narration. Supplier names may contain
// nested parentheses; the supplier boundary is the matching close parenthesis.
func ParseAdjustmentNarration(transactionID, text string) (*StockAdjustment, error) {
	fail := func(reason string) error {
		return &ReconciliationAmbiguityError{TransactionID: transactionID, Narration: text, Reason: reason}
	}

	if !IsAdjustmentNarration(text) {
		return nil, fail("not an original stock adjustment narration")
	}

	a := &StockAdjustment{TransactionID: transactionID, Narration: text}

	rest := strings.TrimPrefix(text, narrationPrefix)
	if strings.HasPrefix(rest, string(DirectionIncrease)) {
		a.Direction = DirectionIncrease
	} else {
		a.Direction = DirectionDecrease
	}
	rest = strings.TrimPrefix(rest, string(a.Direction)+": ")

	typeEnd := strings.Index(rest, " (")
	if typeEnd <= 0 {
		return nil, fail("missing type name")
	}
	a.TypeName = rest[:typeEnd]
	rest = rest[typeEnd+2:]

	supplierEnd := matchingParen(rest)
	if supplierEnd < 0 {
		return nil, fail("unbalanced supplier parentheses")
	}
	a.SupplierName = rest[:supplierEnd]
	rest = rest[supplierEnd+1:]

	if !strings.HasPrefix(rest, weightOpen) {
		return nil, fail("missing weight clause")
	}
	rest = rest[len(weightOpen):]

	sep := strings.Index(rest, weightWorthSep)
	if sep < 0 {
		return nil, fail("missing worth clause")
	}
	if token := rest[:sep]; token != notApplicableWeight {
		w, err := parseNumber(token)
		if err != nil {
			return nil, fail("invalid weight " + token)
		}
		a.Weight = &w
	}
	rest = rest[sep+len(weightWorthSep):]

	closeIdx := strings.Index(rest, ")")
	if closeIdx < 0 {
		return nil, fail("unterminated worth clause")
	}
	worth, err := parseNumber(rest[:closeIdx])
	if err != nil {
		return nil, fail("invalid worth " + rest[:closeIdx])
	}
	a.Worth = worth
	rest = rest[closeIdx+1:]

	if !strings.HasPrefix(rest, reasonSep) {
		return nil, fail("missing reason")
	}
	rest = rest[len(reasonSep):]

	suffixAt := len(rest)
	for _, marker := range []string{targetWeightMarker, targetWorthMarker, setToZeroMarker, zeroWorthMarker} {
		if i := strings.Index(rest, marker); i >= 0 && i < suffixAt {
			suffixAt = i
		}
	}
	a.Reason = rest[:suffixAt]
	suffix := rest[suffixAt:]

	if m := setToZeroRe.FindStringSubmatch(suffix); m != nil {
		tw, err1 := parseNumber(m[1])
		tv, err2 := parseNumber(m[2])
		if err1 != nil || err2 != nil {
			return nil, fail("invalid set-to-zero targets")
		}
		a.SetToZero = true
		a.TargetWeight = &tw
		a.TargetWorth = &tv
	} else {
		if m := targetWeightRe.FindStringSubmatch(suffix); m != nil {
			tw, err := parseNumber(m[1])
			if err != nil {
				return nil, fail("invalid target weight")
			}
			a.TargetWeight = &tw
		}
		if m := targetWorthRe.FindStringSubmatch(suffix); m != nil {
			tv, err := parseNumber(m[1])
			if err != nil {
				return nil, fail("invalid target worth")
			}
			a.TargetWorth = &tv
		}
	}
	a.ZeroWorth = strings.Contains(suffix, strings.TrimPrefix(zeroWorthMarker, "  "))

	return a, nil
}

// matchingParen returns the index of the ')' closing an already-open '('.
func matchingParen(s string) int {
	depth := 1
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.TrimPrefix(s, "+")
	return decimal.NewFromString(s)
}
