package fetch

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// ProbeSize returns the byte size of the resource at rawURL, or 0 when unknown.
// It tries HEAD first and falls back to a one-byte ranged GET. Errors are
// swallowed: a failed probe is reported as unknown size.
func ProbeSize(ctx context.Context, f Fetcher, rawURL string, policy Policy) int64 {
	res, err := f.Fetch(ctx, Request{URL: rawURL, Method: http.MethodHead, Policy: policy})
	if err == nil && res.ContentLength > 0 {
		return res.ContentLength
	}
	if ctx.Err() != nil {
		return 0
	}

	res, err = f.Fetch(ctx, Request{URL: rawURL, Range: "bytes=0-0", Policy: policy})
	if err != nil || res == nil {
		return 0
	}
	if total := parseContentRangeTotal(res.Header.Get("Content-Range")); total > 0 {
		return total
	}
	if res.StatusCode == http.StatusOK && res.ContentLength > 1 {
		return res.ContentLength
	}
	return 0
}

// parseContentRangeTotal reads the total from "bytes 0-0/12345".
func parseContentRangeTotal(v string) int64 {
	i := strings.LastIndex(v, "/")
	if i < 0 || i == len(v)-1 {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v[i+1:]), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
