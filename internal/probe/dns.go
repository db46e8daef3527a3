package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"
)

// Resolution classes appended to failed probes as "dns=<class>".
const (
	DNSResolves    = "RESOLVES"
	DNSNXDomain    = "NXDOMAIN"
	DNSNoARecord   = "NO_A_RECORD"
	DNSServfail    = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
	DNSUnchecked   = "UNCHECKED"
)

// Resolution is what the resolver reported for a probed host.
type Resolution struct {
	Host        string
	Addrs       []net.IP
	Nameservers []string
	Class       string
	Err         error // address lookup failure
}

// Resolver is the subset of *net.Resolver used for diagnostics.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// Resolve looks up the addresses and nameservers of host in parallel and
// classifies the answer. It gives the resolver at most budget; with no budget
// left the host is reported as DNSUnchecked.
func Resolve(ctx context.Context, r Resolver, host string, budget time.Duration) Resolution {
	res := Resolution{Host: strings.TrimSuffix(strings.TrimSpace(host), ".")}
	if res.Host == "" || strings.ContainsAny(res.Host, "/: ") {
		res.Class = DNSInvalidName
		return res
	}
	if budget <= 0 {
		res.Class = DNSUnchecked
		return res
	}
	if r == nil {
		r = net.DefaultResolver
	}

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var (
		wg sync.WaitGroup
		ns []*net.NS
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		ns, _ = r.LookupNS(ctx, res.Host)
	}()
	res.Addrs, res.Err = r.LookupIP(ctx, "ip", res.Host)
	wg.Wait()

	for _, n := range ns {
		res.Nameservers = append(res.Nameservers, strings.TrimSuffix(n.Host, "."))
	}
	res.Class = classify(len(res.Addrs), len(res.Nameservers) > 0, res.Err)
	return res
}

func classify(addrs int, delegated bool, lookupErr error) string {
	switch {
	case addrs > 0:
		return DNSResolves
	case delegated:
		// the zone exists but has no address record
		return DNSNoARecord
	case lookupErr == nil:
		return DNSNXDomain
	}
	var de *net.DNSError
	if errors.As(lookupErr, &de) && de.IsNotFound {
		return DNSNXDomain
	}
	return DNSServfail
}

// DiagnosingProber annotates failed probes against hostnames with the DNS
// class of the host, so "unreachable" and "does not resolve" read apart.
// The lookup runs alongside the echo under the same deadline, so the
// annotation never extends the wait past timeout.
type DiagnosingProber struct {
	Inner    Prober
	Resolver Resolver
}

func (d *DiagnosingProber) Probe(ctx context.Context, host string, timeout time.Duration, packetSize int) (RawResult, error) {
	if net.ParseIP(host) != nil {
		return d.Inner.Probe(ctx, host, timeout, packetSize)
	}

	lctx, cancel := context.WithDeadline(ctx, time.Now().Add(timeout))
	defer cancel()
	lookup := make(chan Resolution, 1)
	go func() { lookup <- Resolve(lctx, d.Resolver, host, timeout) }()

	res, err := d.Inner.Probe(ctx, host, timeout, packetSize)
	if err != nil || res.Success || ctx.Err() != nil {
		return res, err
	}

	class := DNSUnchecked
	select {
	case r := <-lookup:
		class = r.Class
	case <-lctx.Done():
	}
	res.Detail = strings.TrimSpace(res.Detail + " dns=" + class)
	return res, nil
}
