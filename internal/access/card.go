package access

import (
	"strings"

	"github.com/nerrad567/gray-logic-access/internal/credential"
)

// Card formats reported in events.
const (
	FormatWiegand26 = "wiegand26"
	FormatWiegand34 = "wiegand34"
	FormatRaw       = "raw"
)

// CardInfo is the decoded view of a card.
type CardInfo struct {
	CardID string `json:"card_id"`
	Bits   int    `json:"bits"`
	Format string `json:"format"`
	Raw    uint64 `json:"raw"`
	Number uint64 `json:"number"`
}

// DescribeCard validates card and converts it to its raw and formatted
// integer values.
func DescribeCard(card credential.RFIDCard) (CardInfo, error) {
	if err := card.Validate(); err != nil {
		return CardInfo{}, err
	}
	raw, err := card.ToRawInt()
	if err != nil {
		return CardInfo{}, err
	}
	number, err := card.ToInt()
	if err != nil {
		return CardInfo{}, err
	}
	return CardInfo{
		CardID: card.CardID,
		Bits:   card.NbBits,
		Format: cardFormat(card),
		Raw:    raw,
		Number: number,
	}, nil
}

func cardFormat(card credential.RFIDCard) string {
	switch card.NbBits {
	case credential.Wiegand26:
		return FormatWiegand26
	case credential.Wiegand34:
		return FormatWiegand34
	default:
		return FormatRaw
	}
}

// CardFromSerial builds a card from a serial number string sent by a
// virtual reader, such as "04:a2:19:7f". The bit count is the byte count
// times eight.
func CardFromSerial(serial string) (credential.RFIDCard, error) {
	serial = strings.ToLower(strings.TrimSpace(serial))
	return credential.NewRFIDCard(serial, 8*(strings.Count(serial, ":")+1))
}
