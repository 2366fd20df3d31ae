package catalog

import (
	"fmt"
	"log/slog"
	"os"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/errors"

	"gopkg.in/yaml.v3"
)

// Catalog holds the immutable game definitions. It is safe for concurrent
// reads once loaded.
type Catalog struct {
	Factions          []Faction          `yaml:"factions"`
	UnitTypes         []UnitType         `yaml:"unit_types"`
	Units             []Unit             `yaml:"units"`
	SpeedImpactGroups []SpeedImpactGroup `yaml:"speed_impact_groups"`
	AttackRules       []AttackRule       `yaml:"attack_rules"`
	Upgrades          []Upgrade          `yaml:"upgrades"`

	factions    map[int64]*Faction
	unitTypes   map[int64]*UnitType
	units       map[int64]*Unit
	speedGroups map[int64]*SpeedImpactGroup
	attackRules map[int64]*AttackRule
	upgrades    map[int64]*Upgrade
}

func Load(path string, logger *slog.Logger) (*Catalog, error) {
	logger = logger.With("component", "catalog", "operation", "load", "path", path)
	logger.Debug("Loading catalog")

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("Failed to read catalog file", "error", err)
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		logger.Error("Failed to parse catalog", "error", err)
		return nil, err
	}

	logger.Info("Catalog loaded successfully",
		"factions", len(c.Factions),
		"unit_types", len(c.UnitTypes),
		"units", len(c.Units),
		"upgrades", len(c.Upgrades))
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := c.Index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Index builds the lookup maps and validates cross references. Catalogs
// assembled in code must call it before use.
func (c *Catalog) Index() error {
	c.factions = make(map[int64]*Faction, len(c.Factions))
	for i := range c.Factions {
		f := &c.Factions[i]
		if _, dup := c.factions[f.ID]; dup {
			return errors.Invariantf("duplicate faction id %d", f.ID)
		}
		c.factions[f.ID] = f
	}

	c.unitTypes = make(map[int64]*UnitType, len(c.UnitTypes))
	for i := range c.UnitTypes {
		t := &c.UnitTypes[i]
		if _, dup := c.unitTypes[t.ID]; dup {
			return errors.Invariantf("duplicate unit type id %d", t.ID)
		}
		c.unitTypes[t.ID] = t
	}

	c.units = make(map[int64]*Unit, len(c.Units))
	for i := range c.Units {
		u := &c.Units[i]
		if _, dup := c.units[u.ID]; dup {
			return errors.Invariantf("duplicate unit id %d", u.ID)
		}
		c.units[u.ID] = u
	}

	c.speedGroups = make(map[int64]*SpeedImpactGroup, len(c.SpeedImpactGroups))
	for i := range c.SpeedImpactGroups {
		g := &c.SpeedImpactGroups[i]
		c.speedGroups[g.ID] = g
	}

	c.attackRules = make(map[int64]*AttackRule, len(c.AttackRules))
	for i := range c.AttackRules {
		r := &c.AttackRules[i]
		c.attackRules[r.ID] = r
	}

	c.upgrades = make(map[int64]*Upgrade, len(c.Upgrades))
	for i := range c.Upgrades {
		u := &c.Upgrades[i]
		c.upgrades[u.ID] = u
	}

	return c.validate()
}

func (c *Catalog) validate() error {
	for _, t := range c.UnitTypes {
		if t.ParentID != nil {
			if _, ok := c.unitTypes[*t.ParentID]; !ok {
				return errors.Invariantf("unit type %d references unknown parent %d", t.ID, *t.ParentID)
			}
		}
		if err := c.checkOptionalRefs("unit type", t.ID, t.SpeedImpactGroupID, t.AttackRuleID); err != nil {
			return err
		}
		if err := validateSupport(t.MissionSupport); err != nil {
			return fmt.Errorf("unit type %d: %w", t.ID, err)
		}
		if _, err := c.TypeChain(t.ID); err != nil {
			return err
		}
	}

	for _, u := range c.Units {
		if _, ok := c.unitTypes[u.TypeID]; !ok {
			return errors.Invariantf("unit %d references unknown type %d", u.ID, u.TypeID)
		}
		if u.Health <= 0 {
			return errors.Invariantf("unit %d must have positive health", u.ID)
		}
		if err := c.checkOptionalRefs("unit", u.ID, u.SpeedImpactGroupID, u.AttackRuleID); err != nil {
			return err
		}
	}

	for _, g := range c.SpeedImpactGroups {
		if err := validateSupport(g.MissionSupport); err != nil {
			return fmt.Errorf("speed impact group %d: %w", g.ID, err)
		}
	}

	for _, r := range c.AttackRules {
		for _, e := range r.Entries {
			switch e.Target {
			case AttackTargetUnit, AttackTargetUnitType:
			default:
				return errors.Invariantf("attack rule %d has unknown target %q", r.ID, e.Target)
			}
		}
	}

	return nil
}

func (c *Catalog) checkOptionalRefs(kind string, id int64, speedGroupID, attackRuleID *int64) error {
	if speedGroupID != nil {
		if _, ok := c.speedGroups[*speedGroupID]; !ok {
			return errors.Invariantf("%s %d references unknown speed impact group %d", kind, id, *speedGroupID)
		}
	}
	if attackRuleID != nil {
		if _, ok := c.attackRules[*attackRuleID]; !ok {
			return errors.Invariantf("%s %d references unknown attack rule %d", kind, id, *attackRuleID)
		}
	}
	return nil
}

func validateSupport(table MissionSupportTable) error {
	for missionType, support := range table {
		if !missionType.IsRegistrable() {
			return errors.Invariantf("mission support for non registrable type %s", missionType)
		}
		switch support {
		case SupportAny, SupportOwnedOnly, SupportNone:
		default:
			return errors.Invariantf("unknown mission support %q for %s", support, missionType)
		}
	}
	return nil
}

func (c *Catalog) Faction(id int64) (*Faction, error) {
	if f, ok := c.factions[id]; ok {
		return f, nil
	}
	return nil, errors.NotFoundf("faction %d not found", id)
}

func (c *Catalog) UnitType(id int64) (*UnitType, error) {
	if t, ok := c.unitTypes[id]; ok {
		return t, nil
	}
	return nil, errors.NotFoundf("unit type %d not found", id)
}

func (c *Catalog) Unit(id int64) (*Unit, error) {
	if u, ok := c.units[id]; ok {
		return u, nil
	}
	return nil, errors.NotFoundf("unit %d not found", id)
}

func (c *Catalog) Upgrade(id int64) (*Upgrade, error) {
	if u, ok := c.upgrades[id]; ok {
		return u, nil
	}
	return nil, errors.NotFoundf("upgrade %d not found", id)
}

func (c *Catalog) AttackRule(id int64) (*AttackRule, error) {
	if r, ok := c.attackRules[id]; ok {
		return r, nil
	}
	return nil, errors.NotFoundf("attack rule %d not found", id)
}

// TypeChain returns the type id followed by every ancestor id, nearest first.
func (c *Catalog) TypeChain(typeID int64) ([]int64, error) {
	var chain []int64
	seen := make(map[int64]bool)
	current := &typeID
	for current != nil {
		if seen[*current] {
			return nil, errors.Invariantf("unit type %d has a cyclic parent chain", typeID)
		}
		seen[*current] = true

		t, ok := c.unitTypes[*current]
		if !ok {
			return nil, errors.NotFoundf("unit type %d not found", *current)
		}
		chain = append(chain, t.ID)
		current = t.ParentID
	}
	return chain, nil
}

// SpeedImpactGroupFor returns the unit's own group, else its type's group, or
// nil when neither is set.
func (c *Catalog) SpeedImpactGroupFor(unit *Unit) *SpeedImpactGroup {
	if unit.SpeedImpactGroupID != nil {
		return c.speedGroups[*unit.SpeedImpactGroupID]
	}
	if t, ok := c.unitTypes[unit.TypeID]; ok && t.SpeedImpactGroupID != nil {
		return c.speedGroups[*t.SpeedImpactGroupID]
	}
	return nil
}

// AttackRuleFor returns the unit's rule, else the first rule found walking up
// its type chain, or nil when the unit may attack anything.
func (c *Catalog) AttackRuleFor(unit *Unit) (*AttackRule, error) {
	if unit.AttackRuleID != nil {
		return c.AttackRule(*unit.AttackRuleID)
	}

	chain, err := c.TypeChain(unit.TypeID)
	if err != nil {
		return nil, err
	}
	for _, typeID := range chain {
		if t := c.unitTypes[typeID]; t.AttackRuleID != nil {
			return c.AttackRule(*t.AttackRuleID)
		}
	}
	return nil, nil
}

// SupportsMission applies the unit's type mission support table.
func (c *Catalog) SupportsMission(unit *Unit, missionType models.MissionType, targetOwned bool) (bool, error) {
	t, err := c.UnitType(unit.TypeID)
	if err != nil {
		return false, err
	}
	return t.MissionSupport.Allows(missionType, targetOwned), nil
}
