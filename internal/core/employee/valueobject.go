package employee

import (
	"fmt"
	"net/mail"
	"strings"
)

const emailMaxLength = 200

// Email は正規化済みのメールアドレスです。
type Email struct {
	value string
}

// NewEmail は入力を小文字化して検証し、Email を生成します。
func NewEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" || len(normalized) > emailMaxLength {
		return Email{}, ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return Email{}, ErrInvalidEmail
	}

	at := strings.LastIndex(normalized, "@")
	domain := normalized[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return Email{}, ErrInvalidEmail
	}

	return Email{value: normalized}, nil
}

func (e Email) String() string {
	return e.value
}

// IsZero は未設定の Email かどうかを返します。
func (e Email) IsZero() bool {
	return e.value == ""
}

// PhoneType は電話番号の種別です。
type PhoneType string

const (
	PhoneTypeMobile PhoneType = "mobile"
	PhoneTypeHome   PhoneType = "home"
	PhoneTypeWork   PhoneType = "work"
	PhoneTypeOther  PhoneType = "other"
)

// ParsePhoneType は種別名を解釈します。空文字は mobile として扱います。
func ParsePhoneType(raw string) (PhoneType, error) {
	switch t := PhoneType(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return PhoneTypeMobile, nil
	case PhoneTypeMobile, PhoneTypeHome, PhoneTypeWork, PhoneTypeOther:
		return t, nil
	default:
		return "", fmt.Errorf("phone type %q: %w", raw, ErrInvalidPhoneType)
	}
}

const (
	phoneMinDigits = 8
	phoneMaxDigits = 15
)

var phoneFormatting = strings.NewReplacer("-", "", " ", "", "(", "", ")", "", "+", "")

// Phone は電話番号の値オブジェクトです。番号と種別の組で等価性を判定します。
type Phone struct {
	Number string
	Type   PhoneType
}

// NewPhone は書式文字を取り除いた番号を検証して Phone を生成します。
func NewPhone(number string, typ PhoneType) (Phone, error) {
	cleaned := phoneFormatting.Replace(strings.TrimSpace(number))
	if len(cleaned) < phoneMinDigits || len(cleaned) > phoneMaxDigits {
		return Phone{}, ErrInvalidPhoneNumber
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return Phone{}, ErrInvalidPhoneNumber
		}
	}

	switch typ {
	case PhoneTypeMobile, PhoneTypeHome, PhoneTypeWork, PhoneTypeOther:
	default:
		return Phone{}, ErrInvalidPhoneType
	}

	return Phone{Number: cleaned, Type: typ}, nil
}

func (p Phone) String() string {
	return p.Number
}
