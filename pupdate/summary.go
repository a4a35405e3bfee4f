package main

import (
	"fmt"
	"io"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
)

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func printRemoteStart(w io.Writer, n int) {
	fmt.Fprintf(w, "pupdating %d remotes\n", n)
}

func printRemoteSummary(w io.Writer, s model.Summary) {
	dispatched := s.Total + len(s.Unfinished)
	fmt.Fprintf(w, "%d/%d remotes pupdated successfully in %d seconds\n", s.SucceededCount(), dispatched, seconds(s.Duration))
	if len(s.Failed) != 0 {
		fmt.Fprintln(w, "the following remotes failed to pupdate:")
		for _, target := range s.Failed {
			fmt.Fprintln(w, target)
		}
	}
	if len(s.Unfinished) != 0 {
		fmt.Fprintln(w, "the following remotes did not finish before the interrupt:")
		for _, target := range s.Unfinished {
			fmt.Fprintln(w, target)
		}
	}
}

func printLocalStart(w io.Writer) {
	fmt.Fprintln(w, "running local pupdates, you may be pawmpted for your password")
}

func printLocalSummary(w io.Writer, s model.Summary) {
	switch {
	case s.Interrupted:
		fmt.Fprintln(w, "interrupted before the local system was pupdated")
	case s.OK() && s.SucceededCount() == 1:
		fmt.Fprintf(w, "successfully pupdated the local system in %d seconds\n", seconds(s.Duration))
	default:
		fmt.Fprintln(w, "failed to pupdate the local system")
	}
}

func printLocalMode(w io.Writer) {
	fmt.Fprintln(w, "running in local mode, no remotes will be pupdated")
}
