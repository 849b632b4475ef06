package agents

// Action names one animation sequence in an actor's appearance.
type Action uint8

const (
	ActionStand Action = iota
	ActionWalk
	ActionRun
	ActionClimbLadder
	ActionTalk
	ActionJumpUp
	ActionFallBadly
	ActionFreeFall
	ActionTwoHandSwingHigh
	ActionTwoHandSwingLow
	ActionTwoHandSwingLeftHigh
	ActionTwoHandSwingLeftLow
	ActionTwoHandSwingRightHigh
	ActionTwoHandSwingRightLow
	ActionSwingHigh
	ActionSwingLow
	ActionFireBow
	ActionCastSpell
	ActionUseWand
	ActionTwoHandParry
	ActionParryHigh
	ActionShieldParry
	ActionHit
	ActionKnockedDown
	ActionGiveItem
	ActionDie
	ActionDead
	ActionSpecial7 // Stair climb, ascending
	ActionSpecial8 // Stair climb, descending

	NumActions
)

// AnimFlags modify how the current sequence advances.
type AnimFlags uint8

const (
	AnimRepeat    AnimFlags = 1 << iota // Loop when the last frame is reached
	AnimReverse                         // Play backward
	AnimNoRestart                       // Keep the current frame if the action is unchanged
)

// Bank selects an optional set of sequences that may be loaded lazily.
type Bank uint8

const (
	BankWalk Bank = 1 << iota
	BankRun
)

// Appearance is the animation state for one actor: the frame count of each
// available sequence, which optional banks are resident, and the playback
// cursor. A nil *Appearance means the actor has no animation at all.
type Appearance struct {
	Frames    [NumActions]int16 `json:"frames"`
	Loaded    Bank              `json:"loaded"`
	Requested Bank              `json:"requested"`

	Current Action    `json:"current"`
	Frame   int16     `json:"frame"`
	Flags   AnimFlags `json:"flags"`
}

// NewAppearance returns an appearance where every listed action has the
// given number of frames and all banks are loaded.
func NewAppearance(frames map[Action]int16) *Appearance {
	ap := &Appearance{Loaded: BankWalk | BankRun}
	for act, n := range frames {
		ap.Frames[act] = n
	}
	return ap
}

func bankFor(act Action) Bank {
	switch act {
	case ActionWalk:
		return BankWalk
	case ActionRun:
		return BankRun
	}
	return 0
}

// Available reports whether act has frames and its bank is resident.
func (ap *Appearance) Available(act Action) bool {
	if ap == nil || act >= NumActions || ap.Frames[act] == 0 {
		return false
	}
	b := bankFor(act)
	return b == 0 || ap.Loaded&b != 0
}

// RequestBank asks for an optional bank to be loaded. Loading is modeled as
// completing on the next Pump.
func (ap *Appearance) RequestBank(b Bank) {
	if ap != nil {
		ap.Requested |= b
	}
}

// Pump completes outstanding bank loads.
func (ap *Appearance) Pump() {
	if ap != nil {
		ap.Loaded |= ap.Requested
		ap.Requested = 0
	}
}

// FrameCount returns the number of frames in act, or zero.
func (ap *Appearance) FrameCount(act Action) int16 {
	if !ap.Available(act) {
		return 0
	}
	return ap.Frames[act]
}

// Set starts act from its first frame. It returns false if the action is
// unavailable, leaving the current sequence alone.
func (ap *Appearance) Set(act Action, flags AnimFlags) bool {
	if !ap.Available(act) {
		return false
	}
	if flags&AnimNoRestart != 0 && ap.Current == act {
		ap.Flags = flags
		return true
	}
	ap.Current = act
	ap.Flags = flags
	if flags&AnimReverse != 0 {
		ap.Frame = ap.Frames[act] - 1
	} else {
		ap.Frame = 0
	}
	return true
}

// Next advances one frame. It returns true once a non-repeating sequence
// has played its last frame.
func (ap *Appearance) Next() bool {
	if ap == nil {
		return true
	}
	n := ap.Frames[ap.Current]
	if n == 0 {
		return true
	}
	if ap.Flags&AnimReverse != 0 {
		if ap.Frame > 0 {
			ap.Frame--
			return false
		}
		if ap.Flags&AnimRepeat != 0 {
			ap.Frame = n - 1
			return false
		}
		return true
	}
	if ap.Frame < n-1 {
		ap.Frame++
		return false
	}
	if ap.Flags&AnimRepeat != 0 {
		ap.Frame = 0
		return false
	}
	return true
}
