package regions

import (
	"encoding/json"
	"slices"
)

// Kind identifies one template-region taxonomy entry. The set is closed:
// oracle answers outside it normalize to KindOther rather than failing.
type Kind string

// Valid template-region kinds.
const (
	KindBidLetter         Kind = "BID_LETTER"
	KindBidOpeningTable   Kind = "BID_OPENING_TABLE"
	KindPriceSchedule     Kind = "PRICE_SCHEDULE"
	KindPowerOfAttorney   Kind = "POWER_OF_ATTORNEY"
	KindBidBond           Kind = "BID_BOND"
	KindQualification     Kind = "QUALIFICATION"
	KindTechnicalProposal Kind = "TECHNICAL_PROPOSAL"
	KindOther             Kind = "OTHER"
)

var kinds = []Kind{
	KindBidLetter,
	KindBidOpeningTable,
	KindPriceSchedule,
	KindPowerOfAttorney,
	KindBidBond,
	KindQualification,
	KindTechnicalProposal,
	KindOther,
}

var kindDescriptions = map[Kind]string{
	KindBidLetter:         "投标函及其附录 (bid letter form with tender commitments)",
	KindBidOpeningTable:   "开标一览表 (bid opening summary table)",
	KindPriceSchedule:     "报价表/工程量清单 (pricing schedule or bill of quantities)",
	KindPowerOfAttorney:   "法定代表人授权委托书 (power of attorney form)",
	KindBidBond:           "投标保证金/保函 (bid bond or guarantee letter)",
	KindQualification:     "资格审查资料表 (qualification statement forms)",
	KindTechnicalProposal: "技术方案/施工组织设计格式 (technical proposal template)",
	KindOther:             "其他投标格式文件 (other template region)",
}

// Kinds returns the closed list of valid kinds.
func Kinds() []Kind {
	return kinds
}

// Describe returns the short description attached to a kind, used when
// presenting the taxonomy to the classification oracle.
func Describe(k Kind) string {
	return kindDescriptions[k]
}

// NormalizeKind maps a raw kind string onto the closed taxonomy.
// Unknown values fall back to KindOther.
func NormalizeKind(raw string) Kind {
	v := Kind(raw)
	if slices.Contains(kinds, v) {
		return v
	}
	return KindOther
}

// ParseKind validates a string as a known kind.
// Returns ErrInvalidKind if the value is not recognized.
func ParseKind(s string) (Kind, error) {
	v := Kind(s)
	if !slices.Contains(kinds, v) {
		return "", ErrInvalidKind
	}
	return v, nil
}

// UnmarshalJSON validates that the decoded string is a known kind value.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseKind(raw)
	if err != nil {
		return err
	}
	*k = v
	return nil
}
