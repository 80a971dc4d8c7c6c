package node

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/pkg/httpretry"
)

// reloadQueueThreshold is the queue depth (§4.1) above which a graceful
// reload must be deferred rather than issued immediately.
const reloadQueueThreshold = 1000

// Client drives one outbound MTA node: config-file block/pattern-list
// surgery over Channel, plus liveness/queue/reload checks over the node's
// management HTTP API (mirrors the teacher's pmta.Client XML endpoints,
// adapted to the node's own mgmt port instead of a shared PMTA host).
type Client struct {
	cfg        domain.NodeConfig
	channel    Channel
	httpClient httpretry.HTTPDoer
	mgmtBase   string
}

// NewClient builds a node client. channel drives config-file mutations;
// the mgmt HTTP API (read-only: status/queue) is reached over a retrying
// HTTP client (httpretry, 15s per attempt) rather than the channel, since
// it carries no externally sourced strings.
func NewClient(cfg domain.NodeConfig, channel Channel) *Client {
	return &Client{
		cfg:        cfg,
		channel:    channel,
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: 15 * time.Second}, 2),
		mgmtBase:   fmt.Sprintf("http://%s:%d", cfg.MgmtHost, cfg.MgmtPort),
	}
}

// Reachable is a trivial liveness probe on the remote channel.
func (c *Client) Reachable(ctx context.Context) (bool, error) {
	_, err := c.channel.Run(ctx, "true")
	if err != nil {
		return false, apperr.Wrap(apperr.ServiceUnavailable, "node unreachable", err)
	}
	return true, nil
}

// Running reports whether the outbound MTA service process is up.
func (c *Client) Running(ctx context.Context) (bool, error) {
	out, err := c.channel.Run(ctx, "pgrep -x pmtad >/dev/null 2>&1 && echo up || echo down")
	if err != nil {
		return false, apperr.Wrap(apperr.ServiceUnavailable, "node running-check failed", err)
	}
	return strings.TrimSpace(out) == "up", nil
}

// QueueDepth returns the total queued message count, or -1 if
// indeterminate (mgmt API unreachable or malformed response).
func (c *Client) QueueDepth(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mgmtBase+"/status?format=xml", nil)
	if err != nil {
		return -1, err
	}
	if c.cfg.MgmtAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.MgmtAPIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return -1, nil // indeterminate, not fatal; GracefulReload still reloads on -1
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return -1, nil
	}
	status, err := parseStatusXML(resp.Body)
	if err != nil {
		return -1, nil
	}
	return status.TotalQueued, nil
}

// GracefulReload reloads the MTA unless the queue is too deep to reload
// safely, in which case it returns ErrReloadDeferred for the scheduler to
// retry later.
func (c *Client) GracefulReload(ctx context.Context) error {
	depth, err := c.QueueDepth(ctx)
	if err == nil && depth > reloadQueueThreshold {
		return ErrReloadDeferred
	}
	if _, err := c.channel.Run(ctx, "pmta reload"); err != nil {
		return apperr.Wrap(apperr.ServiceUnavailable, "graceful reload failed", err)
	}
	return nil
}

// ErrReloadDeferred signals the scheduler should retry GracefulReload
// later rather than treating the deferral as a failure.
var ErrReloadDeferred = fmt.Errorf("reload deferred: queue depth exceeds threshold")

const patternListClose = "</pattern-list>"

// AppendVMTABlock constructs the virtual-mta block (generic + per-ISP rate
// overrides), pushes it via a temp file, appends it to the authoritative
// config, then inserts the pattern-list entry. If the pattern-list insert
// fails, the block is removed before returning so the config is never left
// half-applied.
func (c *Client) AppendVMTABlock(ctx context.Context, name, ip, hostname, senderEmail, dkimKeyPath string) error {
	block := buildVMTABlock(name, ip, hostname, dkimKeyPath)

	current, err := c.channel.ReadFile(ctx, c.cfg.ConfigPath)
	if err != nil {
		return apperr.Wrap(apperr.ServiceUnavailable, "read node config", err)
	}
	updated := string(current)
	if !strings.HasSuffix(updated, "\n") && len(updated) > 0 {
		updated += "\n"
	}
	updated += block

	if err := c.writeConfig(ctx, updated); err != nil {
		return apperr.Wrap(apperr.ServiceUnavailable, "append vmta block", err)
	}

	if err := c.insertPatternListEntry(ctx, senderEmail, name); err != nil {
		// Rollback: remove the block we just appended so the config stays
		// consistent with the (not-yet-persisted) IP row.
		_ = c.RemoveVMTABlock(ctx, name, senderEmail)
		return apperr.Wrap(apperr.ServiceUnavailable, "insert pattern-list entry", err)
	}

	if err := c.GracefulReload(ctx); err != nil && err != ErrReloadDeferred {
		return apperr.Wrap(apperr.ServiceUnavailable, "reload after vmta create", err)
	}
	return nil
}

// RemoveVMTABlock deletes the named virtual-mta block and its pattern-list
// entry (keyed by senderEmail, the pattern-list's lookup key).
func (c *Client) RemoveVMTABlock(ctx context.Context, name, senderEmail string) error {
	current, err := c.channel.ReadFile(ctx, c.cfg.ConfigPath)
	if err != nil {
		return apperr.Wrap(apperr.ServiceUnavailable, "read node config", err)
	}

	updated := removeBlock(string(current), name)
	updated = removePatternListEntry(updated, senderEmail)

	if err := c.writeConfig(ctx, updated); err != nil {
		return apperr.Wrap(apperr.ServiceUnavailable, "remove vmta block", err)
	}
	if err := c.GracefulReload(ctx); err != nil && err != ErrReloadDeferred {
		return apperr.Wrap(apperr.ServiceUnavailable, "reload after vmta delete", err)
	}
	return nil
}

// SetVMTARate edits an existing block's generic max-msg-rate.
func (c *Client) SetVMTARate(ctx context.Context, name string, ratePerHour int) error {
	return c.editBlockRate(ctx, name, ratePerHour)
}

// PauseVMTA sets an existing block's rate to 0/h.
func (c *Client) PauseVMTA(ctx context.Context, name string) error {
	return c.editBlockRate(ctx, name, 0)
}

// ResumeVMTA restores an existing block's rate to the given value.
func (c *Client) ResumeVMTA(ctx context.Context, name string, ratePerHour int) error {
	return c.editBlockRate(ctx, name, ratePerHour)
}

func (c *Client) editBlockRate(ctx context.Context, name string, ratePerHour int) error {
	current, err := c.channel.ReadFile(ctx, c.cfg.ConfigPath)
	if err != nil {
		return apperr.Wrap(apperr.ServiceUnavailable, "read node config", err)
	}
	updated, found := setBlockGenericRate(string(current), name, ratePerHour)
	if !found {
		return apperr.New(apperr.NotFound, "vmta block not found: "+name)
	}
	if err := c.writeConfig(ctx, updated); err != nil {
		return apperr.Wrap(apperr.ServiceUnavailable, "set vmta rate", err)
	}
	if err := c.GracefulReload(ctx); err != nil && err != ErrReloadDeferred {
		return apperr.Wrap(apperr.ServiceUnavailable, "reload after rate change", err)
	}
	return nil
}

// ListVMTAs returns the names of every configured virtual-mta block.
func (c *Client) ListVMTAs(ctx context.Context) ([]string, error) {
	current, err := c.channel.ReadFile(ctx, c.cfg.ConfigPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.ServiceUnavailable, "read node config", err)
	}
	return listBlockNames(string(current)), nil
}

// GetSenderForVMTA reads back the sender email bound to name in the
// pattern-list, or apperr.NotFound if no entry matches.
func (c *Client) GetSenderForVMTA(ctx context.Context, name string) (string, error) {
	current, err := c.channel.ReadFile(ctx, c.cfg.ConfigPath)
	if err != nil {
		return "", apperr.Wrap(apperr.ServiceUnavailable, "read node config", err)
	}
	sender, ok := findSenderForVMTA(string(current), name)
	if !ok {
		return "", apperr.New(apperr.NotFound, "no pattern-list entry for vmta: "+name)
	}
	return sender, nil
}

// insertPatternListEntry reads the current config, inserts the
// sender-email/vmta-name entry before </pattern-list>, and writes it back.
func (c *Client) insertPatternListEntry(ctx context.Context, senderEmail, vmtaName string) error {
	current, err := c.channel.ReadFile(ctx, c.cfg.ConfigPath)
	if err != nil {
		return err
	}
	updated, err := insertPatternListLine(string(current), senderEmail, vmtaName)
	if err != nil {
		return err
	}
	return c.writeConfig(ctx, updated)
}

// writeConfig pushes data to a temp path then renames it onto the
// authoritative config path, so a reader never observes a half-written
// file.
func (c *Client) writeConfig(ctx context.Context, data string) error {
	tmpPath := c.cfg.ConfigPath + ".tmp." + strconv.FormatInt(time.Now().UnixNano(), 10)
	return c.channel.WriteFileAtomic(ctx, tmpPath, c.cfg.ConfigPath, []byte(data))
}
