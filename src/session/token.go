package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("session: invalid token")

const tokenTTL = time.Hour

func issueJWT(addr common.Address, chainID uint64, secret []byte, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"addr":  addr.Hex(),
		"chain": strconv.FormatUint(chainID, 10),
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	})
	return token.SignedString(secret)
}

// ParseToken validates a bearer token and returns the session it carries.
func ParseToken(raw string, secret []byte) (WalletSession, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return Disconnected(), fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Disconnected(), ErrInvalidToken
	}
	addr, _ := claims["addr"].(string)
	if !common.IsHexAddress(addr) {
		return Disconnected(), fmt.Errorf("%w: bad addr claim", ErrInvalidToken)
	}
	chainStr, _ := claims["chain"].(string)
	chainID, err := strconv.ParseUint(chainStr, 10, 64)
	if err != nil {
		return Disconnected(), fmt.Errorf("%w: bad chain claim", ErrInvalidToken)
	}
	return Connected(common.HexToAddress(addr), chainID), nil
}
