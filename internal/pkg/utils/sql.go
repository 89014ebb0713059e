package utils

import (
	"database/sql"
	"time"
)

// ToSQLStr creates new sql str instance
func ToSQLStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FromSQLStr returns string from sql.NullString
func FromSQLStr(sqlStr sql.NullString) string {
	if sqlStr.Valid {
		return sqlStr.String
	}
	return ""
}

// ToSQLBool creates new sql bool instance, nil maps to NULL
func ToSQLBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

// FromSQLBool returns bool ptr from sql.NullBool
func FromSQLBool(sqlData sql.NullBool) *bool {
	if sqlData.Valid {
		return &sqlData.Bool
	}
	return nil
}

// ToSQLInt32 creates new sql int instance
func ToSQLInt32(i int32) sql.NullInt32 {
	return sql.NullInt32{Int32: i, Valid: true}
}

// FromSQLInt32 returns int ptr from sql.NullInt32
func FromSQLInt32(sqlData sql.NullInt32) *int32 {
	if sqlData.Valid {
		return &sqlData.Int32
	}
	return nil
}

// FromSQLTime returns time ptr from sql.NullTime
func FromSQLTime(sqlData sql.NullTime) *time.Time {
	if sqlData.Valid {
		return &sqlData.Time
	}
	return nil
}
