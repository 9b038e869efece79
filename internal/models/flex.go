// Package models defines data structures for Stakd
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexFloat handles JSON values that may be either a number or a string.
// Exported vault data from wallets and exchanges is inconsistent about
// numeric encoding; malformed or empty strings decode to 0 rather than
// failing the whole document.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexFloat(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// Float returns the underlying float64.
func (f FlexFloat) Float() float64 {
	return float64(f)
}
