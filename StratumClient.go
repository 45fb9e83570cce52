package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/golang/glog"
)

// StratumClient owns the single upstream connection to a pool: the
// subscribe/authorize handshake, the live notify/set_difficulty handling,
// share submission, keepalive, inactivity disconnection, and primary/
// backup failover (spec.md §4.D/§5). It is the Go-idiomatic equivalent of
// the original firmware's stratum_task: a poll loop with a few volatile
// flags becomes one goroutine with one event loop and a handful of
// channels.
type StratumClient struct {
	config    *Config
	cell      *JobCell
	stats     *Stats
	submitter *Submitter

	submissions <-chan EventSubmitShare

	nextID uint32 // shared across every outgoing message, never 0

	extraNonce1     []byte
	extraNonce2Size int

	lastDifficulty float64

	state ClientState
}

func NewStratumClient(config *Config, cell *JobCell, stats *Stats, submitter *Submitter, submissions <-chan EventSubmitShare) *StratumClient {
	return &StratumClient{
		config:         config,
		cell:           cell,
		stats:          stats,
		submitter:      submitter,
		submissions:    submissions,
		nextID:         1,
		lastDifficulty: 1,
	}
}

func (c *StratumClient) allocID() uint32 {
	id := c.nextID
	if c.nextID == 0xFFFFFFFF {
		c.nextID = 1
	} else {
		c.nextID++
	}
	return id
}

// Run blocks until ctx is cancelled, reconnecting and failing over between
// the primary and backup pool as needed.
func (c *StratumClient) Run(ctx context.Context) error {
	usingBackup := false
	var lastConnectAttempt, backupConnectedAt time.Time

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		endpoint := c.config.Pool
		if usingBackup {
			endpoint = c.config.BackupPool
		}

		conn, reader, err := c.connectAndHandshake(ctx, endpoint)
		if err != nil {
			glog.Warningf("connect to %s failed: %v", endpoint.Addr(), err)

			if !usingBackup && !c.config.BackupPool.Empty() &&
				time.Since(lastConnectAttempt) > FailoverThreshold {
				usingBackup = true
			}
			lastConnectAttempt = time.Now()

			if !sleepCtx(ctx, ReconnectSleep) {
				return ctx.Err()
			}
			continue
		}

		lastConnectAttempt = time.Now()
		if usingBackup {
			backupConnectedAt = time.Now()
		}
		c.state = StateMining
		glog.Infof("connected to %s (%s)", endpoint.Addr(), boolLabel(usingBackup, "backup", "primary"))

		switchToPrimary := c.serveConnection(ctx, conn, reader, usingBackup, backupConnectedAt)
		conn.Close()
		c.state = StateDisconnected

		if switchToPrimary {
			usingBackup = false
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func boolLabel(b bool, whenTrue, whenFalse string) string {
	if b {
		return whenTrue
	}
	return whenFalse
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// serveConnection runs the live event loop over one already-authorized
// connection until it breaks or the caller wants to switch back to the
// primary pool, returning true in the latter case.
func (c *StratumClient) serveConnection(ctx context.Context, conn net.Conn, reader *bufio.Reader, usingBackup bool, backupConnectedAt time.Time) (switchToPrimary bool) {
	lines := make(chan *JSONRPCLine, 32)
	readErrs := make(chan error, 1)
	go c.readLoop(conn, reader, lines, readErrs)

	lastActivity := time.Now()
	lastSubmit := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false

		case line, ok := <-lines:
			if !ok {
				return false
			}
			c.handleLine(line)
			lastActivity = time.Now()

		case err := <-readErrs:
			glog.Warningf("connection lost: %v", err)
			return false

		case share := <-c.submissions:
			c.submitShare(conn, share)
			lastSubmit = time.Now()

		case <-ticker.C:
			if time.Since(lastSubmit) > KeepaliveIdleInterval {
				c.sendKeepalive(conn)
				lastSubmit = time.Now()
			}
			if time.Since(lastActivity) > InactivityTimeout {
				glog.Warning("pool inactive, disconnecting")
				return false
			}
			if usingBackup && time.Since(backupConnectedAt) > BackupProbeInterval {
				if c.probePrimary(ctx) {
					glog.Info("primary pool reachable again, switching back")
					return true
				}
				backupConnectedAt = time.Now()
			}
		}
	}
}

// probePrimary tests whether the primary pool will complete a full
// handshake right now, without disturbing the active backup connection.
func (c *StratumClient) probePrimary(ctx context.Context) bool {
	conn, _, err := c.connectAndHandshake(ctx, c.config.Pool)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *StratumClient) readLoop(conn net.Conn, reader *bufio.Reader, lines chan<- *JSONRPCLine, errs chan<- error) {
	for {
		conn.SetReadDeadline(time.Now().Add(LineReadTimeout))
		raw, err := readBoundedLine(reader, MaxLineLength)
		if err != nil {
			if err == ErrLineTooLong {
				glog.Warning("discarded oversize line from pool")
				continue
			}
			errs <- err
			return
		}
		line, err := NewJSONRPCLine(raw)
		if err != nil {
			glog.Warningf("failed to decode line from pool: %v; %s", err, raw)
			continue
		}
		lines <- line
	}
}

func (c *StratumClient) handleLine(line *JSONRPCLine) {
	if line.IsNotification() {
		switch line.Method {
		case "mining.notify":
			c.handleNotify(line)
		case "mining.set_difficulty":
			c.handleSetDifficulty(line)
		default:
			glog.V(1).Infof("unhandled pool method: %s", line.Method)
		}
		return
	}

	share, latency, ok := c.submitter.Resolve(line.ID)
	if !ok {
		return
	}
	accepted, _ := line.Result.(bool)
	status := ClassifyShareResult(accepted, line.PoolError())
	c.stats.RecordShareResult(status, latency.Milliseconds())
	if status.IsAccepted() {
		glog.Infof("share accepted (job %s, diff %.4f, %dms)", share.JobID, share.Difficulty, latency.Milliseconds())
	} else {
		glog.Warningf("share rejected (job %s): %s", share.JobID, status)
	}
}

func (c *StratumClient) handleNotify(line *JSONRPCLine) {
	job, err := ParseNotify(line.Params, c.extraNonce1, c.extraNonce2Size)
	if err != nil {
		glog.Warningf("malformed mining.notify: %v", err)
		return
	}

	job.SetPoolDifficulty(c.lastDifficulty)

	if err := job.Activate(randomUint64); err != nil {
		glog.Warningf("failed to activate job %s: %v", job.JobID, err)
		return
	}

	c.cell.Publish(job)
	c.stats.IncTemplatesSeen()
	glog.V(1).Infof("new job %s (clean=%v, branches=%d)", job.JobID, job.CleanJobs, len(job.Branches))
}

func (c *StratumClient) handleSetDifficulty(line *JSONRPCLine) {
	if len(line.Params) == 0 {
		return
	}
	diff, ok := line.Params[0].(float64)
	if !ok || diff <= 0 || math.IsNaN(diff) || math.IsInf(diff, 0) {
		return
	}

	c.lastDifficulty = diff

	job, _, ok := c.cell.Acquire()
	if !ok {
		return
	}
	job.SetPoolDifficulty(diff)
	glog.Infof("pool difficulty set to %.6f", diff)
}

func (c *StratumClient) submitShare(conn net.Conn, share EventSubmitShare) {
	id := c.allocID()
	c.submitter.Register(id, share)

	wallet := workerWallet(c.config.Pool, c.config.WorkerNameSuffix)

	en2Hex := EncodeExtraNonce2(share.ExtraNonce2, c.extraNonce2Size)

	req := JSONRPCRequest{
		ID:     id,
		Method: "mining.submit",
		Params: []interface{}{
			wallet,
			share.JobID,
			en2Hex,
			Uint32ToHex(share.Ntime),
			Uint32ToHex(share.Nonce),
		},
	}
	line, err := req.ToJSONBytesLine()
	if err != nil {
		glog.Errorf("failed to encode mining.submit: %v", err)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(LineReadTimeout))
	if _, err := conn.Write(line); err != nil {
		glog.Errorf("failed to submit share: %v", err)
		return
	}
	c.stats.IncShareSent()
}

func (c *StratumClient) sendKeepalive(conn net.Conn) {
	id := c.allocID()
	req := JSONRPCRequest{
		ID:     id,
		Method: "mining.suggest_difficulty",
		Params: []interface{}{c.config.DesiredDifficulty},
	}
	line, err := req.ToJSONBytesLine()
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(LineReadTimeout))
	conn.Write(line)
}

// connectAndHandshake dials endpoint and runs the full subscribe ->
// suggest_difficulty -> authorize handshake (spec.md §4.D), returning a
// ready-to-serve connection and reader.
func (c *StratumClient) connectAndHandshake(ctx context.Context, endpoint PoolEndpoint) (net.Conn, *bufio.Reader, error) {
	timeout := c.config.Advanced.PoolConnectionDialTimeoutSeconds.Get()

	conn, err := c.dial(ctx, endpoint, timeout)
	if err != nil {
		return nil, nil, err
	}
	if c.config.PoolUseTLS {
		conn = tls.Client(conn, &tls.Config{
			ServerName:         endpoint.Host,
			InsecureSkipVerify: c.config.Advanced.TLSSkipCertificateVerify,
		})
	}

	reader := bufio.NewReader(conn)
	if err := c.handshake(conn, reader, endpoint); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, reader, nil
}

// dial connects to endpoint directly, or through whatever proxy is named by
// ALL_PROXY/HTTP_PROXY/HTTPS_PROXY (grounded on the teacher's Proxy.go,
// which reads the same environment variables for its own upstream dials).
func (c *StratumClient) dial(ctx context.Context, endpoint PoolEndpoint, timeout time.Duration) (net.Conn, error) {
	proxyURL := GetProxyURLFromEnv()
	if proxyURL == "" {
		dialer := &net.Dialer{Timeout: timeout}
		return dialer.DialContext(ctx, "tcp", endpoint.Addr())
	}

	dialer, err := GetProxyDialer(proxyURL, timeout, c.config.Advanced.TLSSkipCertificateVerify)
	if err != nil {
		return nil, fmt.Errorf("failed to build proxy dialer for %s: %w", proxyURL, err)
	}
	return dialer.Dial("tcp", endpoint.Addr())
}

func (c *StratumClient) handshake(conn net.Conn, reader *bufio.Reader, endpoint PoolEndpoint) error {
	subID := c.allocID()
	subReq := JSONRPCRequest{ID: subID, Method: "mining.subscribe", Params: []interface{}{MinerUserAgent}}
	if err := writeRequest(conn, &subReq); err != nil {
		return err
	}

	subResp, err := c.waitForResponseByID(conn, reader, subID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubscribeFailed, err)
	}
	if err := c.applySubscribeResult(subResp); err != nil {
		return err
	}

	diffID := c.allocID()
	diffReq := JSONRPCRequest{ID: diffID, Method: "mining.suggest_difficulty", Params: []interface{}{c.config.DesiredDifficulty}}
	writeRequest(conn, &diffReq) // best-effort; pools may ignore or reject this
	if c.config.DesiredDifficulty > 0 {
		c.lastDifficulty = c.config.DesiredDifficulty
	}

	wallet := workerWallet(endpoint, c.config.WorkerNameSuffix)
	authID := c.allocID()
	authReq := JSONRPCRequest{ID: authID, Method: "mining.authorize", Params: []interface{}{wallet, endpoint.Password}}
	if err := writeRequest(conn, &authReq); err != nil {
		return err
	}

	authResp, err := c.waitForResponseByID(conn, reader, authID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorizeFailed, err)
	}
	ok, _ := authResp.Result.(bool)
	if !ok {
		return fmt.Errorf("%w: %v", ErrAuthorizeFailed, authResp.PoolError())
	}
	return nil
}

// workerWallet renders the username mining.authorize/mining.submit send:
// the endpoint's wallet plus a worker-name suffix, preferring the
// per-endpoint Worker field (spec.md §3's pool-endpoint array) over the
// global fallback so a backup pool can carry its own worker name.
func workerWallet(endpoint PoolEndpoint, fallbackSuffix string) string {
	suffix := endpoint.Worker
	if suffix == "" {
		suffix = fallbackSuffix
	}
	if suffix == "" {
		return endpoint.Wallet
	}
	return endpoint.Wallet + "." + suffix
}

func (c *StratumClient) applySubscribeResult(resp *JSONRPCLine) error {
	result, ok := resp.Result.([]interface{})
	if !ok || len(result) < 3 {
		return fmt.Errorf("%w: malformed subscribe result", ErrSubscribeFailed)
	}
	en1Hex, ok := result[1].(string)
	if !ok {
		return fmt.Errorf("%w: extranonce1 is not a string", ErrSubscribeFailed)
	}
	en1, err := hexDecodeInto(en1Hex, -1)
	if err != nil {
		return fmt.Errorf("%w: extranonce1: %v", ErrSubscribeFailed, err)
	}
	sizeFloat, ok := result[2].(float64)
	if !ok {
		return fmt.Errorf("%w: extranonce2_size is not a number", ErrSubscribeFailed)
	}

	c.extraNonce1 = en1
	c.extraNonce2Size = int(sizeFloat)
	return nil
}

// waitForResponseByID reads lines until one whose id matches expectedID
// arrives, applying mining.set_difficulty notifications as they interleave
// rather than discarding them (spec.md §4.D; grounded on the original
// firmware's waitForResponseById).
func (c *StratumClient) waitForResponseByID(conn net.Conn, reader *bufio.Reader, expectedID uint32) (*JSONRPCLine, error) {
	for attempt := 0; attempt < HandshakeMaxAttempts; attempt++ {
		conn.SetReadDeadline(time.Now().Add(HandshakeReadTimeout))
		raw, err := readBoundedLine(reader, MaxLineLength)
		if err != nil {
			if err == ErrLineTooLong {
				continue
			}
			return nil, err
		}
		line, err := NewJSONRPCLine(raw)
		if err != nil {
			continue
		}
		if line.IsNotification() {
			if line.Method == "mining.set_difficulty" {
				c.handleSetDifficulty(line)
			}
			continue
		}
		if id, ok := toUint32ID(line.ID); ok && id == expectedID {
			return line, nil
		}
	}
	return nil, ErrHandshakeTimeout
}

func writeRequest(conn net.Conn, req *JSONRPCRequest) error {
	line, err := req.ToJSONBytesLine()
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(HandshakeReadTimeout))
	_, err = conn.Write(line)
	return err
}

// readBoundedLine reads up to '\n', discarding and reporting ErrLineTooLong
// if the line exceeds maxLen rather than growing an unbounded buffer
// (spec.md §4.D; grounded on the original firmware's readBoundedLine).
func readBoundedLine(reader *bufio.Reader, maxLen int) ([]byte, error) {
	var buf []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == '\n' {
			return buf, nil
		}
		if len(buf) >= maxLen {
			for {
				b2, err2 := reader.ReadByte()
				if err2 != nil {
					return nil, err2
				}
				if b2 == '\n' {
					break
				}
			}
			return nil, ErrLineTooLong
		}
		buf = append(buf, b)
	}
}

// randomUint64 is the miner's source of randomness for extranonce2 and
// nonce-lane start offsets. Mining has no need for cryptographic
// randomness here, only avoiding always restarting a job's search at
// nonce/extranonce2 zero.
func randomUint64() uint64 {
	return uint64(time.Now().UnixNano())
}
