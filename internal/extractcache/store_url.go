package extractcache

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const defaultValkeyPort = "6379"

type connInfo struct {
	addr     string
	username string
	password string
	selectDB int
	useTLS   bool
}

// parseURL 은 redis://, rediss://, valkey:// URL 또는 host[:port] 를 해석한다.
func parseURL(raw string) (connInfo, error) {
	if strings.TrimSpace(raw) == "" {
		return connInfo{}, errors.New("extract cache url is empty")
	}
	if !strings.Contains(raw, "://") {
		return parseAddr(raw)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return connInfo{}, fmt.Errorf("parse url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "redis", "rediss", "valkey", "valkeys":
	default:
		return connInfo{}, fmt.Errorf("unsupported extract cache scheme %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return connInfo{}, errors.New("extract cache host missing")
	}
	port := parsed.Port()
	if port == "" {
		port = defaultValkeyPort
	}

	selectDB := 0
	if path := strings.TrimPrefix(parsed.Path, "/"); strings.TrimSpace(path) != "" {
		db, err := strconv.Atoi(path)
		if err != nil || db < 0 {
			return connInfo{}, fmt.Errorf("invalid extract cache db %q", path)
		}
		selectDB = db
	}

	info := connInfo{
		addr:     net.JoinHostPort(host, port),
		selectDB: selectDB,
		useTLS:   strings.EqualFold(parsed.Scheme, "rediss") || strings.EqualFold(parsed.Scheme, "valkeys"),
	}
	if parsed.User != nil {
		info.username = parsed.User.Username()
		info.password, _ = parsed.User.Password()
	}
	return info, nil
}

func parseAddr(addr string) (connInfo, error) {
	trimmed := strings.TrimSpace(addr)
	host, port, err := net.SplitHostPort(trimmed)
	if err != nil {
		var addrErr *net.AddrError
		if !errors.As(err, &addrErr) {
			return connInfo{}, fmt.Errorf("invalid extract cache address: %w", err)
		}
		switch addrErr.Err {
		case "missing port in address":
			host = strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]")
			port = defaultValkeyPort
		case "too many colons in address":
			host = trimmed
			port = defaultValkeyPort
		default:
			return connInfo{}, fmt.Errorf("invalid extract cache address: %w", err)
		}
	}
	if strings.TrimSpace(host) == "" {
		return connInfo{}, errors.New("extract cache host missing")
	}
	return connInfo{addr: net.JoinHostPort(host, port)}, nil
}
