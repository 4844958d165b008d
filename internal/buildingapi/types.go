package buildingapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is an external identifier. The directory sends user ids as UUID
// strings and some legacy records as numbers; both decode to a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

type User struct {
	ID    ID     `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Name  string `json:"full_name,omitempty"`
}

// LoginResult is a successful identity-provider answer.
type LoginResult struct {
	Token  string
	UserID string
	Role   string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse accepts both token field names providers use.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	Access      string `json:"access"`
	User        User   `json:"user"`
}

func (r loginResponse) token() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Access
}

// Object is one entry of the objects list.
type Object struct {
	ID      int    `json:"id"`
	Name    string `json:"name,omitempty"`
	Status  string `json:"status"`
	Foreman *User  `json:"foreman"`
}

// Active reports whether the object is in the "active" state.
func (o Object) Active() bool { return strings.EqualFold(o.Status, "active") }

// Area is a sub-polygon of an object. Geometry is raw GeoJSON.
type Area struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Geometry json.RawMessage `json:"geometry"`
}

type MainPolygon struct {
	Geometry json.RawMessage `json:"geometry"`
}

// ObjectDetail is the full object record.
type ObjectDetail struct {
	ID          int          `json:"id"`
	Name        string       `json:"name,omitempty"`
	Status      string       `json:"status"`
	Foreman     *User        `json:"foreman"`
	Areas       []Area       `json:"areas"`
	MainPolygon *MainPolygon `json:"main_polygon"`
}

// MainGeometry returns the raw GeoJSON of the object's boundary, or nil.
func (d ObjectDetail) MainGeometry() json.RawMessage {
	if d.MainPolygon == nil {
		return nil
	}
	return d.MainPolygon.Geometry
}

// UploadPayload is the body accepted by both storage routes.
type UploadPayload struct {
	PhotosBase64 []string `json:"photos_base64"`
	Date         string   `json:"date"`
}

// decodeList accepts either {"items": [...]} or a bare array.
func decodeList[T any](raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	var items []T
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var wrapped struct {
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Items, nil
}
