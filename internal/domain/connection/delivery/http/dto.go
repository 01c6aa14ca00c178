package http

import (
	"bytes"
	"encoding/json"
	"strconv"

	accountentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/entities"
	msgentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
)

// SessionHeader carries the session string in both directions
const SessionHeader = "X-Telegram-Session"

// Operations accepted by the RPC endpoint
const (
	OpValidate    = "validate"
	OpConnect     = "connect"
	OpVerify      = "verify"
	OpPassword    = "password"
	OpListen      = "listen"
	OpDisconnect  = "disconnect"
	OpStatus      = "status"
	OpRepost      = "repost"
	OpHealthcheck = "healthcheck"
)

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or numeric string
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(s))
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// RPCRequest is the body of the RPC endpoint
type RPCRequest struct {
	Operation        string     `json:"operation"`
	APIID            flexString `json:"apiId"`
	APIHash          string     `json:"apiHash"`
	PhoneNumber      string     `json:"phoneNumber"`
	AccountID        string     `json:"accountId"`
	SessionString    string     `json:"sessionString"`
	VerificationCode flexString `json:"verificationCode"`
	PhoneCodeHash    string     `json:"phoneCodeHash"`
	Password         string     `json:"password"`
	ChannelNames     []string   `json:"channelNames"`
	MessageID        flexInt    `json:"messageId"`
	SourceChannel    string     `json:"sourceChannel"`
	TargetChannel    string     `json:"targetChannel"`
	Logout           bool       `json:"logout"`
}

// Account returns the credentials carried by the request
func (r *RPCRequest) Account() accountentities.Account {
	return accountentities.Account{
		ID:          r.AccountID,
		APIID:       string(r.APIID),
		APIHash:     r.APIHash,
		PhoneNumber: r.PhoneNumber,
	}
}

// RPCResponse is the success body of the RPC endpoint. Failures use the
// shared error envelope, which carries the same success/error/errorKind/title keys.
type RPCResponse struct {
	Success        bool                    `json:"success"`
	CodeNeeded     bool                    `json:"codeNeeded,omitempty"`
	PasswordNeeded bool                    `json:"passwordNeeded,omitempty"`
	PhoneCodeHash  string                  `json:"phoneCodeHash,omitempty"`
	CodeType       string                  `json:"codeType,omitempty"`
	CodeTimeout    int                     `json:"codeTimeout,omitempty"`
	TestCode       string                  `json:"testCode,omitempty"`
	Session        string                  `json:"session,omitempty"`
	Authenticated  *bool                   `json:"authenticated,omitempty"`
	Reachable      *bool                   `json:"reachable,omitempty"`
	Results        []telegram.ListenResult `json:"results,omitempty"`
	Messages       []msgentities.Message   `json:"messages,omitempty"`
	Status         interface{}             `json:"status,omitempty"`
}

func fromConnectResult(res *entities.ConnectResult) RPCResponse {
	authenticated := res.Authenticated
	return RPCResponse{
		Success:        true,
		CodeNeeded:     res.CodeNeeded,
		PasswordNeeded: res.PasswordNeeded,
		PhoneCodeHash:  res.PhoneCodeHash,
		CodeType:       res.CodeType,
		CodeTimeout:    res.CodeTimeout,
		TestCode:       res.TestCode,
		Session:        res.Session,
		Authenticated:  &authenticated,
	}
}
