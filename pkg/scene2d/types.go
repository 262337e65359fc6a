package scene2d

// Scene2D is the top-down summary of one generated site, used by the
// preview renderers.
type Scene2D struct {
	Metadata   Metadata       `json:"metadata"`
	Boundary   [][2]float64   `json:"boundary"`
	Groups     []Group2D      `json:"groups"`
	Piles      []Pile2D       `json:"piles"`
	Props      []Prop2D       `json:"props"`
	TypeCounts map[string]int `json:"type_counts"`
}

// Metadata holds site-level summary data.
type Metadata struct {
	SiteName        string  `json:"site_name"`
	AreaSize        float64 `json:"area_size"`
	Footprint       string  `json:"footprint_wkt,omitempty"`
	RequestedGroups int     `json:"requested_groups"`
	GroupCount      int     `json:"group_count"`
	PileCount       int     `json:"pile_count"`
	GeneratedAt     string  `json:"generated_at"`
}

// Group2D is one stepped group.
type Group2D struct {
	ID        int        `json:"id"`
	Center    [2]float64 `json:"center"`
	RowAngle  float64    `json:"row_angle"`
	Spacing   float64    `json:"spacing"`
	TargetTop float64    `json:"target_top_z"`
	TopSpread float64    `json:"top_spread"`
	Relaxed   int        `json:"relaxed"`
}

// Pile2D is a single pile in plan view.
type Pile2D struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	GroupID  int        `json:"group_id"`
	Position [2]float64 `json:"position"`
	TopZ     float64    `json:"top_z"`
	InRow    bool       `json:"in_row"`
}

// Prop2D is a debris item or distractor in plan view.
type Prop2D struct {
	ID       string     `json:"id"`
	Kind     string     `json:"kind"`
	Position [2]float64 `json:"position"`
	Size     [2]float64 `json:"size"`
	Yaw      float64    `json:"yaw"`
}
