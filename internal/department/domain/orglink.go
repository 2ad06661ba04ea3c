package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// OrgLink records which organization owns a department. A department is
// either Unlinked (legacy rows) or LinkedTo exactly one organization.
type OrgLink struct {
	orgID snowflake.ID
}

func Unlinked() OrgLink {
	return OrgLink{}
}

func LinkedTo(orgID snowflake.ID) OrgLink {
	return OrgLink{orgID: orgID}
}

// Get returns the owning organization and whether the link is set.
func (l OrgLink) Get() (snowflake.ID, bool) {
	return l.orgID, l.orgID != 0
}

func (l OrgLink) IsLinked() bool {
	return l.orgID != 0
}

// Is reports whether the department is linked to orgID.
func (l OrgLink) Is(orgID snowflake.ID) bool {
	return l.orgID != 0 && l.orgID == orgID
}

func (l OrgLink) String() string {
	if l.orgID == 0 {
		return "unlinked"
	}
	return l.orgID.String()
}

// Scan implements sql.Scanner over a nullable bigint column.
func (l *OrgLink) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		l.orgID = 0
	case int64:
		l.orgID = snowflake.ID(v)
	case []byte:
		return l.parse(string(v))
	case string:
		return l.parse(v)
	default:
		return fmt.Errorf("org link: unsupported type %T", value)
	}
	return nil
}

func (l *OrgLink) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		l.orgID = 0
		return nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("org link: %w", err)
	}
	l.orgID = snowflake.ID(parsed)
	return nil
}

// Value implements driver.Valuer; unlinked departments store NULL.
func (l OrgLink) Value() (driver.Value, error) {
	if l.orgID == 0 {
		return nil, nil
	}
	return l.orgID.Int64(), nil
}

func (OrgLink) GormDataType() string {
	return "bigint"
}

func (l OrgLink) MarshalJSON() ([]byte, error) {
	if l.orgID == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(l.orgID.String())
}

func (l *OrgLink) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		l.orgID = 0
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return l.parse(raw)
}
