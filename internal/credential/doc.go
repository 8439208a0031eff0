// Package credential models what a reader hands to the access logic: RFID
// cards, keypad PIN codes, or both.
//
// # Card numbers
//
// A card arrives as the raw frame in hex-colon form plus its bit count.
// RFIDCard.ToInt turns that into the number printed on the card:
//
//	c, _ := credential.NewRFIDCard("80:80:33:80", 26)
//	n, _ := c.ToInt() // 103
//
// Wiegand 26 and 34 frames have their parity bits stripped; any other width
// is returned as the raw integer. Frames wider than 64 bits are not
// supported.
//
// # Validation
//
// Invalid input produces *validation.Error values with the source pointers
// data/attributes/cardId, data/attributes/nbBits and data/attributes/code.
package credential
