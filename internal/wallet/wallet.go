// ABOUTME: Credit wallet snapshot and reconciler
// ABOUTME: The server is the sole balance authority; snapshots replace wholesale

package wallet

import "sync"

// Pricing lists the per-feature credit costs the server currently charges.
type Pricing struct {
	Analyze             int `json:"analyze"`
	AIResumeGeneration  int `json:"aiResumeGeneration"`
	TemplatePDFDownload int `json:"templatePdfDownload"`
}

// Wallet is the authoritative, server-issued view of a user's balance.
// Clients never compute credits locally; they display the last snapshot
// received, whether it arrived in a success body or a declined one.
type Wallet struct {
	Credits              int     `json:"credits"`
	WelcomeCredits       int     `json:"welcomeCredits"`
	FreeAnalysesIncluded int     `json:"freeAnalysesIncluded"`
	Pricing              Pricing `json:"pricing"`
}

// Reconciler holds the displayed wallet and replaces it whenever any
// response carries a fresher snapshot. There is no partial merge.
type Reconciler struct {
	mu      sync.Mutex
	current *Wallet
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Merge adopts a snapshot. A nil snapshot is a no-op; a non-nil one replaces
// the displayed wallet unconditionally.
func (r *Reconciler) Merge(w *Wallet) {
	if w == nil {
		return
	}
	snapshot := *w
	r.mu.Lock()
	r.current = &snapshot
	r.mu.Unlock()
}

// Current returns a copy of the displayed wallet, or nil before the first
// snapshot arrives.
func (r *Reconciler) Current() *Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	snapshot := *r.current
	return &snapshot
}

// Clear forgets the displayed wallet. Called on sign-out so the next
// identity starts from its own snapshot.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
}
