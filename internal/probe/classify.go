package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"

	"github.com/hamed0406/uptimeprobe/internal/domain"
)

// Classify maps a raw probe outcome to a result kind and reason. A non-nil
// err always wins over status. Body and headers are never inspected.
func Classify(status int, err error) (domain.Kind, string) {
	if err != nil {
		if isTimeout(err) {
			return domain.KindTimeout, "Timeout"
		}
		return domain.KindNetworkError, errorCode(err)
	}
	if status >= 200 && status < 400 {
		return domain.KindSuccess, ""
	}
	return domain.KindNonSuccessStatus, fmt.Sprintf("HTTP%d", status)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

var errnoCodes = []struct {
	errno syscall.Errno
	code  string
}{
	{syscall.ECONNREFUSED, "ECONNREFUSED"},
	{syscall.ECONNRESET, "ECONNRESET"},
	{syscall.ECONNABORTED, "ECONNABORTED"},
	{syscall.EHOSTUNREACH, "EHOSTUNREACH"},
	{syscall.ENETUNREACH, "ENETUNREACH"},
	{syscall.EPIPE, "EPIPE"},
}

// errorCode renders a transport error as a short code in the style of
// socket error names, falling back to the error text.
func errorCode(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return "ENOTFOUND"
		}
		return "EAI_AGAIN"
	}
	for _, e := range errnoCodes {
		if errors.Is(err, e.errno) {
			return e.code
		}
	}
	if errors.Is(err, context.Canceled) {
		return "ECANCELED"
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return "ECONNRESET"
	}
	if code := tlsCode(err); code != "" {
		return code
	}

	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}

func tlsCode(err error) string {
	var (
		hostErr    x509.HostnameError
		authErr    x509.UnknownAuthorityError
		invalidErr x509.CertificateInvalidError
		recErr     tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &hostErr):
		return "ERR_TLS_CERT_ALTNAME_INVALID"
	case errors.As(err, &authErr):
		return "UNABLE_TO_VERIFY_LEAF_SIGNATURE"
	case errors.As(err, &invalidErr):
		if invalidErr.Reason == x509.Expired {
			return "CERT_HAS_EXPIRED"
		}
		return "CERT_INVALID"
	case errors.As(err, &recErr):
		return "EPROTO"
	}
	return ""
}
