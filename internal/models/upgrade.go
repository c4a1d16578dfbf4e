package models

// Upgrade is a purchasable variable. Cost and value are cached for the current level
// and recomputed on every level change; Buy and Set are the only mutation paths.
type Upgrade struct {
	Name string

	costModel  CostModel
	valueModel ValueModel
	level      uint32
	cost       float64
	value      float64
}

// NewUpgrade creates an upgrade at level 1
func NewUpgrade(name string, cost CostModel, value ValueModel) *Upgrade {
	u := &Upgrade{Name: name, costModel: cost, valueModel: value, level: 1}
	u.recompute()
	return u
}

func (u *Upgrade) recompute() {
	u.value = u.valueModel.Value(u.level)
	u.cost = u.costModel.Cost(u.level)
}

// Level returns the current level
func (u *Upgrade) Level() uint32 { return u.level }

// Cost returns the log10 price of the next level
func (u *Upgrade) Cost() float64 { return u.cost }

// Value returns the cached contribution at the current level
func (u *Upgrade) Value() float64 { return u.value }

// Buy raises the level by one. Affordability is the caller's concern.
func (u *Upgrade) Buy() {
	u.level++
	u.recompute()
}

// Set assigns an absolute level
func (u *Upgrade) Set(level uint32) {
	u.level = level
	u.recompute()
}

// Mirror returns an independent upgrade with the same models at the same level.
// Models are stateless values and are shared.
func (u *Upgrade) Mirror() *Upgrade {
	clone := *u
	return &clone
}
