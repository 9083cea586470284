// Package steamuser resolves the locally signed-in Steam account.
//
// Steam records every account that has logged in on this machine in
// config/loginusers.vdf, keyed by 64-bit SteamID, with a MostRecent flag on
// the active one. The sensor only needs the account ID (the low 32 bits,
// sometimes called SteamID3) to attribute Statlocker notifications.
package steamuser

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// steamID64Base is the offset between a 64-bit individual SteamID and its
// 32-bit account ID.
const steamID64Base = 76561197960265728

// User is one account from loginusers.vdf
type User struct {
	SteamID64   uint64
	AccountName string
	PersonaName string
	MostRecent  bool
}

// AccountID returns the 32-bit account ID for the user
func (u User) AccountID() uint32 {
	return uint32(u.SteamID64 - steamID64Base)
}

// MostRecentUser parses the loginusers.vdf file at path and returns the
// account marked most recent. When no account carries the flag, the first
// listed account is returned.
func MostRecentUser(path string) (User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return User{}, fmt.Errorf("failed to read loginusers file: %w", err)
	}

	users, err := parseLoginUsers(string(data))
	if err != nil {
		return User{}, err
	}
	if len(users) == 0 {
		return User{}, fmt.Errorf("no accounts listed in %s", path)
	}

	for _, u := range users {
		if u.MostRecent {
			return u, nil
		}
	}
	return users[0], nil
}

// parseLoginUsers walks the VDF token stream. The format is quoted strings
// and braces: a top-level "users" block containing one block per SteamID64,
// each block a flat list of "key" "value" pairs.
func parseLoginUsers(content string) ([]User, error) {
	tokens := tokenize(content)

	var users []User
	var current *User
	depth := 0

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 1 && current != nil {
				users = append(users, *current)
				current = nil
			}
		default:
			// At depth 1 a string token names an account block
			if depth == 1 {
				id, err := strconv.ParseUint(tok, 10, 64)
				if err != nil || id < steamID64Base {
					current = nil
					continue
				}
				current = &User{SteamID64: id}
				continue
			}
			// Inside an account block tokens come in key/value pairs
			if depth == 2 && current != nil && i+1 < len(tokens) {
				value := tokens[i+1]
				if value == "{" || value == "}" {
					continue
				}
				i++
				switch strings.ToLower(tok) {
				case "accountname":
					current.AccountName = value
				case "personaname":
					current.PersonaName = value
				case "mostrecent":
					current.MostRecent = value == "1"
				}
			}
		}
	}

	return users, nil
}

// tokenize splits VDF content into quoted strings and brace tokens. Escapes
// inside quoted strings are kept verbatim; none of the keys the sensor reads
// contain them.
func tokenize(content string) []string {
	var tokens []string
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '"':
			end := strings.IndexByte(content[i+1:], '"')
			if end < 0 {
				return tokens
			}
			tokens = append(tokens, content[i+1:i+1+end])
			i += end + 1
		case '{', '}':
			tokens = append(tokens, string(content[i]))
		case '/':
			// Line comment
			if i+1 < len(content) && content[i+1] == '/' {
				nl := strings.IndexByte(content[i:], '\n')
				if nl < 0 {
					return tokens
				}
				i += nl
			}
		}
	}
	return tokens
}
