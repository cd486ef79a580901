package shura

// Compile-time feature tokens threaded into the kernel build. Each rule below
// contributes at most one token, so no conflict resolution is needed.
const (
	featNoGraphic    = "nographic"
	featCmdlineInit  = "cmdline_init"
	featGenericTimer = "generic_timer"
	featBoardK210    = "board_k210"
	featBoardRaspi3  = "board_raspi3"
	featSv39         = "sv39"
)

// ResolveFeatures derives the kernel feature set from the configuration. It is
// a pure function: same config, same tokens, no duplicates. Validation of the
// configuration itself happens elsewhere; unknown combinations simply yield
// the tokens their rules produce.
func ResolveFeatures(cfg BuildConfig) []string {
	var feats []string
	seen := make(map[string]bool)
	add := func(tok string) {
		if !seen[tok] {
			seen[tok] = true
			feats = append(feats, tok)
		}
	}

	if !cfg.Graphics {
		add(featNoGraphic)
	}
	if cfg.InitPath != "" {
		add(featCmdlineInit)
	}
	if cfg.Timer == TimerGeneric {
		add(featGenericTimer)
	}
	switch cfg.Board {
	case BoardK210:
		add(featBoardK210)
	case BoardRaspi3:
		add(featBoardRaspi3)
	}
	if cfg.Sv39 {
		add(featSv39)
	}

	return feats
}
