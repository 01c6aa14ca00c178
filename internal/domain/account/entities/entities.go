package entities

import "strconv"

// Account identifies one operator-owned set of Telegram credentials
type Account struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	APIID       string `json:"apiId"`
	APIHash     string `json:"apiHash"`
	PhoneNumber string `json:"phoneNumber"`
}

// NumericAPIID returns the API id as an integer, or 0 when it is not numeric
func (a *Account) NumericAPIID() int {
	n, err := strconv.Atoi(a.APIID)
	if err != nil {
		return 0
	}
	return n
}

// ChannelPair maps a source channel to the destination it is republished to
type ChannelPair struct {
	ID                 string `json:"id"`
	AccountID          string `json:"accountId"`
	SourceChannel      string `json:"sourceChannel"`
	DestinationChannel string `json:"destinationChannel"`
	DestinationHandle  string `json:"destinationHandle"`
	IsActive           bool   `json:"isActive"`
}
