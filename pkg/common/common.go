package common

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/crypto/bcrypt"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
	NA       = "N/A"
)

var (
	idNode     *snowflake.Node
	idNodeOnce sync.Once
)

// SetNodeID must be called before the first UUIDint64 call to take effect.
func SetNodeID(n int64) {
	idNodeOnce.Do(func() {
		node, err := snowflake.NewNode(n)
		if err != nil {
			panic(err)
		}
		idNode = node
	})
}

// UUIDint64 returns a time-ordered unique int64 id.
func UUIDint64() int64 {
	SetNodeID(1)
	return idNode.Generate().Int64()
}

// UUIDBase36 returns a short time-ordered id, used for human facing numbers.
func UUIDBase36() string {
	SetNodeID(1)
	return strings.ToUpper(idNode.Generate().Base36())
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func IfEmptyStr(src string, defval string) string {
	if strings.TrimSpace(src) == "" {
		return defval
	}
	return src
}

func InSlice(v string, items []string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
