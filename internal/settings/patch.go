package settings

// Patch is a partial Config. Nil fields leave the current value alone.
type Patch struct {
	Tracking                   *bool `json:"tracking,omitempty"`
	PollIdeState               *bool `json:"poll_ide_state,omitempty"`
	PollIdeStateMs             *int  `json:"poll_ide_state_ms,omitempty"`
	TrackIdeActions            *bool `json:"track_ide_actions,omitempty"`
	TrackKeyboard              *bool `json:"track_keyboard,omitempty"`
	TrackMouse                 *bool `json:"track_mouse,omitempty"`
	MouseMoveEventsThresholdMs *int  `json:"mouse_move_events_threshold_ms,omitempty"`
}

// Empty reports whether p sets no field.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Validate checks the fields p sets.
func (p Patch) Validate() error {
	return p.Apply(Default).Validate()
}

// Apply returns cfg with the fields of p set.
func (p Patch) Apply(cfg Config) Config {
	if p.Tracking != nil {
		cfg.Tracking = *p.Tracking
	}
	if p.PollIdeState != nil {
		cfg.PollIdeState = *p.PollIdeState
	}
	if p.PollIdeStateMs != nil {
		cfg.PollIdeStateMs = *p.PollIdeStateMs
	}
	if p.TrackIdeActions != nil {
		cfg.TrackIdeActions = *p.TrackIdeActions
	}
	if p.TrackKeyboard != nil {
		cfg.TrackKeyboard = *p.TrackKeyboard
	}
	if p.TrackMouse != nil {
		cfg.TrackMouse = *p.TrackMouse
	}
	if p.MouseMoveEventsThresholdMs != nil {
		cfg.MouseMoveEventsThresholdMs = *p.MouseMoveEventsThresholdMs
	}
	return cfg
}
