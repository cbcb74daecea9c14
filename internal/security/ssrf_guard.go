package security

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// SSRFGuardService はアバター画像などの外部URLを取得するときの制限をまとめる。
type SSRFGuardService interface {
	// NewSafeClient は接続先IPの検証とレスポンスサイズの上限を持つHTTPクライアントを返す。
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client

	// ValidateURL はDNS解決を行わずにURLを検証する。
	ValidateURL(rawURL string) error
}

// ErrResponseTooLarge はレスポンスボディが上限を超えたときに返される。
var ErrResponseTooLarge = errors.New("response body exceeds limit")

const maxRedirects = 3

var blockedNetworks = mustParseCIDRs(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10", // CGNAT
	"127.0.0.0/8",
	"169.254.0.0/16", // メタデータIPを含む
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"::/128",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"ff00::/8",
)

var blockedHostnames = map[string]struct{}{
	"localhost":                {},
	"metadata.google.internal": {},
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %q: %v", cidr, err))
		}
		networks = append(networks, network)
	}
	return networks
}

// SSRFGuardConfig はSSRFGuardの許可条件。
type SSRFGuardConfig struct {
	// AllowInsecure がtrueの場合はhttpも許可する。既定はhttpsのみ。
	AllowInsecure bool
	// AllowedHosts が空でない場合、いずれかのホストまたはそのサブドメインのみ許可する。
	AllowedHosts []string
}

type ssrfGuard struct {
	schemes []string
	ports   []int
	hosts   []string
}

// NewSSRFGuard はSSRFGuardを生成する。
func NewSSRFGuard(cfg SSRFGuardConfig) *ssrfGuard {
	g := &ssrfGuard{
		schemes: []string{"https"},
		ports:   []int{443},
	}
	if cfg.AllowInsecure {
		g.schemes = append(g.schemes, "http")
		g.ports = append(g.ports, 80)
	}
	for _, h := range cfg.AllowedHosts {
		h = strings.Trim(strings.ToLower(strings.TrimSpace(h)), ".")
		if h != "" {
			g.hosts = append(g.hosts, h)
		}
	}
	return g
}

// NewSafeClient はsafeurlのDialer検証付きクライアントを返す。
// DNS解決後のIPはsafeurl側で検証され、リダイレクト先はValidateURLで再検証する。
func (g *ssrfGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(g.schemes...).
		SetAllowedPorts(g.ports...).
		Build()

	client := safeurl.Client(config).Client
	if maxResponseSize > 0 {
		client.Transport = &limitedTransport{next: client.Transport, limit: maxResponseSize}
	}

	next := client.CheckRedirect
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if err := g.ValidateURL(req.URL.String()); err != nil {
			return fmt.Errorf("redirect rejected: %w", err)
		}
		if next != nil {
			return next(req, via)
		}
		return nil
	}
	return client
}

// ValidateURL はスキーム、ホスト許可リスト、IPリテラルを検証する。
func (g *ssrfGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("empty URL")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !g.allowsScheme(scheme) {
		return fmt.Errorf("disallowed scheme %q (allowed: %v)", scheme, g.schemes)
	}
	if parsed.User != nil {
		return errors.New("credentials in URL are not allowed")
	}

	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip)
		}
		if len(g.hosts) > 0 {
			return fmt.Errorf("host not in allowlist: %s", host)
		}
		return nil
	}

	if _, ok := blockedHostnames[host]; ok || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	if !g.allowsHost(host) {
		return fmt.Errorf("host not in allowlist: %s", host)
	}
	return nil
}

func (g *ssrfGuard) allowsScheme(scheme string) bool {
	for _, s := range g.schemes {
		if s == scheme {
			return true
		}
	}
	return false
}

func (g *ssrfGuard) allowsHost(host string) bool {
	if len(g.hosts) == 0 {
		return true
	}
	for _, allowed := range g.hosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// isBlockedIP はIPv4射影アドレスをIPv4として扱って判定する。
func isBlockedIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// limitedTransport はContent-Lengthとボディの実サイズの両方で上限を強制する。
type limitedTransport struct {
	next  http.RoundTripper
	limit int64
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.ContentLength > t.limit {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: content-length %d", ErrResponseTooLarge, resp.ContentLength)
	}
	resp.Body = &limitedBody{rc: resp.Body, remaining: t.limit}
	return resp, nil
}

type limitedBody struct {
	rc        io.ReadCloser
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, ErrResponseTooLarge
	}
	// 上限を1バイト超えて読めた時点で超過と判定する
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n + int(b.remaining), ErrResponseTooLarge
	}
	return n, err
}

func (b *limitedBody) Close() error {
	return b.rc.Close()
}
