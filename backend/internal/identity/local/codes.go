package local

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"
)

const codeLength = 8

// excludes ambiguous characters: 0, O, I, 1
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type codeKind int

const (
	verifyEmailCode codeKind = iota
	changeEmailCode
)

type pendingCode struct {
	kind     codeKind
	uid      string
	newEmail string
	expires  time.Time
}

// codeBook holds single-use codes mailed to users.
type codeBook struct {
	mu    sync.Mutex
	codes map[string]pendingCode
	ttl   time.Duration
	now   func() time.Time
}

func newCodeBook(ttl time.Duration) *codeBook {
	return &codeBook{codes: make(map[string]pendingCode), ttl: ttl, now: time.Now}
}

func (b *codeBook) issue(kind codeKind, uid, newEmail string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for code, p := range b.codes {
		if now.After(p.expires) || (p.kind == kind && p.uid == uid) {
			delete(b.codes, code)
		}
	}

	code := generateCode()
	for _, taken := b.codes[code]; taken; _, taken = b.codes[code] {
		code = generateCode()
	}
	b.codes[code] = pendingCode{kind: kind, uid: uid, newEmail: newEmail, expires: now.Add(b.ttl)}
	return code
}

// redeem consumes code. Unknown, expired or wrong-kind codes are rejected.
func (b *codeBook) redeem(kind codeKind, code string) (pendingCode, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.codes[code]
	if !ok || p.kind != kind {
		return pendingCode{}, false
	}
	delete(b.codes, code)
	if b.now().After(p.expires) {
		return pendingCode{}, false
	}
	return p, true
}

func generateCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			panic("failed to generate code: " + err.Error())
		}
		b[i] = codeCharset[n.Int64()]
	}
	return string(b)
}
