// Command coldroutectl is a thin operator CLI over the same service
// packages the HTTP surface calls: no business logic is duplicated here,
// every subcommand wires straight into bootstrap.Wiring.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/coldroute/coldroute/internal/bootstrap"
	"github.com/coldroute/coldroute/internal/config"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/provision"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		fatal("load config: %v", err)
	}

	w, err := bootstrap.Build(cfg)
	if err != nil {
		fatal("bootstrap: %v", err)
	}
	defer w.Close()

	switch os.Args[1] {
	case "ip":
		handleIP(w, os.Args[2:])
	case "node":
		handleNode(w, os.Args[2:])
	case "warmup":
		handleWarmup(w, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`coldroutectl — coldroute control-plane operator tool

Usage:
  coldroutectl <command> <subcommand> [flags]

Commands:
  ip add    --tenant <ref> --ip <addr> --hostname <name> --sender <email> [--node <id>]  Provision an IP
  ip remove --tenant <ref> --ip <addr> [--keep-config]                                    Deprovision an IP
  ip list   [--status <STATUS>]                                                           List IPs

  node status                    Show reachable/running/queue-depth for every configured node
  node queues                    Alias for node status
  node reload --node <id>        Gracefully reload a node's PMTA config

  warmup status [--ip <ip-ref>]  Show one plan's progress, or every active plan

Environment:
  CONFIG_PATH    path to config.yaml (default: config/config.yaml)`)
}

// =============================================================================
// IP COMMANDS
// =============================================================================

func handleIP(w *bootstrap.Wiring, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: coldroutectl ip <add|remove|list>")
		os.Exit(1)
	}

	switch args[0] {
	case "add":
		tenant := flagValue(args, "--tenant")
		ip := flagValue(args, "--ip")
		hostname := flagValue(args, "--hostname")
		sender := flagValue(args, "--sender")
		if tenant == "" || ip == "" || hostname == "" || sender == "" {
			fatal("--tenant, --ip, --hostname and --sender are required")
		}
		addIP(w, tenant, ip, hostname, sender, flagValue(args, "--node"))

	case "remove":
		tenant := flagValue(args, "--tenant")
		ip := flagValue(args, "--ip")
		if tenant == "" || ip == "" {
			fatal("--tenant and --ip are required")
		}
		removeIP(w, tenant, ip, !hasFlag(args, "--keep-config"))

	case "list":
		listIPs(w, flagValue(args, "--status"))

	default:
		fatal("unknown ip subcommand: %s", args[0])
	}
}

func addIP(w *bootstrap.Wiring, tenant, addr, hostname, sender, nodeID string) {
	ip, err := w.ProvisionerIface().Create(context.Background(), provision.CreateParams{
		TenantRef:   tenant,
		Address:     addr,
		Hostname:    hostname,
		Purpose:     domain.PurposeCold,
		SenderEmail: sender,
		NodeID:      nodeID,
	})
	if err != nil {
		fatal("provision failed: %v", err)
	}
	fmt.Printf("provisioned %s as %s (vmta=%s, server=%s, status=%s)\n",
		ip.Address, ip.ID, ip.VMTAName, ip.MailwizzServerRef, ip.Status)
}

func removeIP(w *bootstrap.Wiring, tenant, addr string, deprovision bool) {
	ip, err := w.IPRepo.GetByAddress(context.Background(), tenant, addr)
	if err != nil {
		fatal("lookup ip: %v", err)
	}
	if err := w.ProvisionerIface().Delete(context.Background(), ip, deprovision); err != nil {
		fatal("deprovision failed: %v", err)
	}
	fmt.Printf("removed %s (deprovision=%v)\n", addr, deprovision)
}

func listIPs(w *bootstrap.Wiring, statusFilter string) {
	ctx := context.Background()
	statuses := []domain.IPStatus{
		domain.IPActive, domain.IPRetiring, domain.IPResting,
		domain.IPWarming, domain.IPBlacklisted, domain.IPStandby, domain.IPQuarantined,
	}
	if statusFilter != "" {
		statuses = []domain.IPStatus{domain.IPStatus(statusFilter)}
	}

	fmt.Printf("%-16s %-25s %-12s %-20s %6s\n", "ADDRESS", "HOSTNAME", "STATUS", "VMTA", "WEIGHT")
	for _, status := range statuses {
		ips, err := w.IPRepo.ListByStatus(ctx, status)
		if err != nil {
			fatal("list ips: %v", err)
		}
		for _, ip := range ips {
			fmt.Printf("%-16s %-25s %-12s %-20s %6d\n", ip.Address, ip.Hostname, ip.Status, ip.VMTAName, ip.Weight)
		}
	}
}

// =============================================================================
// NODE COMMANDS
// =============================================================================

func handleNode(w *bootstrap.Wiring, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: coldroutectl node <status|queues|reload>")
		os.Exit(1)
	}
	switch args[0] {
	case "status", "queues":
		nodeStatus(w)
	case "reload":
		nodeID := flagValue(args, "--node")
		if nodeID == "" {
			fatal("--node is required")
		}
		nodeReload(w, nodeID)
	default:
		fatal("unknown node subcommand: %s", args[0])
	}
}

func nodeStatus(w *bootstrap.Wiring) {
	if w.NodeRegistry == nil {
		fatal("no nodes configured")
	}
	reports := w.NodeRegistry.HealthCheckAll(context.Background())
	fmt.Printf("%-20s %-10s %-10s %10s %s\n", "NODE", "REACHABLE", "RUNNING", "QUEUE", "ERROR")
	for _, r := range reports {
		errStr := ""
		if r.Err != nil {
			errStr = r.Err.Error()
		}
		fmt.Printf("%-20s %-10v %-10v %10d %s\n", r.NodeID, r.Reachable, r.Running, r.QueueDepth, errStr)
	}
}

func nodeReload(w *bootstrap.Wiring, nodeID string) {
	if w.NodeRegistry == nil {
		fatal("no nodes configured")
	}
	client, err := w.NodeRegistry.Client(nodeID)
	if err != nil {
		fatal("resolve node: %v", err)
	}
	if err := client.GracefulReload(context.Background()); err != nil {
		fatal("reload failed: %v", err)
	}
	fmt.Printf("node %s reloaded\n", nodeID)
}

// =============================================================================
// WARMUP COMMANDS
// =============================================================================

func handleWarmup(w *bootstrap.Wiring, args []string) {
	if len(args) == 0 || args[0] != "status" {
		fmt.Fprintln(os.Stderr, "Usage: coldroutectl warmup status [--ip <ip-ref>]")
		os.Exit(1)
	}
	ctx := context.Background()
	ipRef := flagValue(args, "--ip")
	if ipRef != "" {
		plan, err := w.PlanRepo.GetByIP(ctx, ipRef)
		if err != nil {
			fatal("lookup plan: %v", err)
		}
		printPlan(*plan)
		return
	}
	plans, err := w.PlanRepo.ListActive(ctx)
	if err != nil {
		fatal("list plans: %v", err)
	}
	for _, p := range plans {
		printPlan(p)
	}
}

func printPlan(p domain.WarmupPlan) {
	fmt.Printf("ip=%-12s phase=%-10s quota=%-8d target=%-8d bounce7d=%.3f%% spam7d=%.3f%% paused=%v\n",
		p.IPRef, p.Phase, p.CurrentDailyQuota, p.TargetDailyQuota,
		p.BounceRate7d*100, p.SpamRate7d*100, p.Paused)
}

// =============================================================================
// HELPERS
// =============================================================================

func flagValue(args []string, name string) string {
	for i, a := range args {
		if a == name && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
