package db

import "time"

// 日時はUTC・秒精度のRFC3339文字列で保存する。
// 固定長なので文字列比較がそのまま時刻比較になり、MySQL/sqliteの両方で同じSQLが使える。
const timeLayout = time.RFC3339

func FmtTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timeLayout)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// NULL許容カラム用
func FmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FmtTime(*t)
}
