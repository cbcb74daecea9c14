package repository

import "strings"

// likeEscaper はLIKEパターンのメタ文字をエスケープする。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern は部分一致検索用のILIKEパターンを返す。
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
