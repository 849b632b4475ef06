package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/rules"
	"github.com/talgya/actorcore/internal/script"
	"github.com/talgya/actorcore/internal/tile"
)

// Chunk tags. Chunks are restored in load order: objects and actors
// first, then bands, motions, task stacks and finally tasks.
const (
	ChunkBands  = "BAND"
	ChunkMotion = "MOTN"
	ChunkStacks = "TSTK"
	ChunkTasks  = "TASK"
)

// LoadOrder lists the chunk tags in the order they must be restored.
var LoadOrder = []string{ChunkBands, ChunkMotion, ChunkStacks, ChunkTasks}

// Snapshot is the whole simulation state at one tick.
type Snapshot struct {
	ID      string
	Name    string
	Tick    uint64
	Created time.Time

	Objects     []*agents.Object // Items; actors are in Actors
	Actors      []*agents.Actor
	Chunks      map[string][]byte
	Threads     []script.ThreadState
	Aggressions []rules.Aggression
}

// Size returns the number of chunk bytes in s.
func (s *Snapshot) Size() int {
	n := 0
	for _, c := range s.Chunks {
		n += len(c)
	}
	return n
}

// SaveInfo describes one stored slot.
type SaveInfo struct {
	ID      string `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Tick    uint64 `db:"tick" json:"tick"`
	Created int64  `db:"created_at" json:"created_at"`
	Size    int64  `db:"size" json:"size"`
}

// objectRow is one row of the objects table.
type objectRow struct {
	SaveID       string         `db:"save_id"`
	ID           uint16         `db:"id"`
	Name         string         `db:"name"`
	Kind         uint8          `db:"kind"`
	Parent       uint16         `db:"parent"`
	U            int16          `db:"u"`
	V            int16          `db:"v"`
	Z            int16          `db:"z"`
	Height       int16          `db:"height"`
	CrossSection int16          `db:"cross_section"`
	Flags        uint16         `db:"flags"`
	Damage       int16          `db:"damage"`
	MaxRange     int16          `db:"max_range"`
	TwoHanded    bool           `db:"two_handed"`
	Spell        uint16         `db:"spell"`
	Skill        bool           `db:"skill"`
	Worn         bool           `db:"worn"`
	ActorJSON    sql.NullString `db:"actor_json"`
}

// actorState is the actor half of an objects row.
type actorState struct {
	Facing           tile.Direction        `json:"facing"`
	Disposition      agents.Disposition    `json:"disposition"`
	Player           bool                  `json:"player"`
	Behavior         agents.CombatBehavior `json:"behavior"`
	Skills           agents.Skills         `json:"skills"`
	Vitality         int16                 `json:"vitality"`
	MaxVitality      int16                 `json:"max_vitality"`
	Dead             bool                  `json:"dead"`
	Immobile         bool                  `json:"immobile,omitempty"`
	DisappearOnDeath bool                  `json:"disappear_on_death,omitempty"`
	Status           agents.ActorFlags     `json:"status"`
	CurrentTarget    agents.ObjectID       `json:"current_target"`
	RightHand        agents.ObjectID       `json:"right_hand"`
	LeftHand         agents.ObjectID       `json:"left_hand"`
	Leader           agents.ObjectID       `json:"leader"`
	CycleCount       int16                 `json:"cycle_count"`
	ActionCounter    uint8                 `json:"action_counter"`
	Anim             *agents.Appearance    `json:"anim,omitempty"`
}

func newObjectRow(saveID string, o *agents.Object) objectRow {
	return objectRow{
		SaveID:       saveID,
		ID:           uint16(o.ID),
		Name:         o.Name,
		Kind:         uint8(o.Kind),
		Parent:       uint16(o.Parent),
		U:            o.Location.U,
		V:            o.Location.V,
		Z:            o.Location.Z,
		Height:       o.Height,
		CrossSection: o.CrossSection,
		Flags:        uint16(o.Flags),
		Damage:       o.Damage,
		MaxRange:     o.MaxRange,
		TwoHanded:    o.TwoHanded,
		Spell:        uint16(o.Spell),
		Skill:        o.Skill,
		Worn:         o.Worn,
	}
}

func (r objectRow) object() agents.Object {
	return agents.Object{
		ID:           agents.ObjectID(r.ID),
		Name:         r.Name,
		Kind:         agents.Kind(r.Kind),
		Parent:       agents.ObjectID(r.Parent),
		Location:     tile.Point{U: r.U, V: r.V, Z: r.Z},
		Height:       r.Height,
		CrossSection: r.CrossSection,
		Flags:        agents.ObjectFlags(r.Flags),
		Damage:       r.Damage,
		MaxRange:     r.MaxRange,
		TwoHanded:    r.TwoHanded,
		Spell:        agents.ObjectID(r.Spell),
		Skill:        r.Skill,
		Worn:         r.Worn,
	}
}

func actorRow(saveID string, a *agents.Actor) (objectRow, error) {
	row := newObjectRow(saveID, &a.Object)
	data, err := json.Marshal(actorState{
		Facing:           a.Facing,
		Disposition:      a.Disposition,
		Player:           a.Player,
		Behavior:         a.Behavior,
		Skills:           a.Skills,
		Vitality:         a.Vitality,
		MaxVitality:      a.MaxVitality,
		Dead:             a.Dead,
		Immobile:         a.Immobile,
		DisappearOnDeath: a.DisappearOnDeath,
		Status:           a.Status,
		CurrentTarget:    a.CurrentTarget,
		RightHand:        a.RightHand,
		LeftHand:         a.LeftHand,
		Leader:           a.Leader,
		CycleCount:       a.CycleCount,
		ActionCounter:    a.ActionCounter(),
		Anim:             a.Anim,
	})
	if err != nil {
		return row, fmt.Errorf("encode actor %d: %w", a.ID, err)
	}
	row.ActorJSON = sql.NullString{String: string(data), Valid: true}
	return row, nil
}

func (r objectRow) actor() (*agents.Actor, error) {
	var st actorState
	if err := json.Unmarshal([]byte(r.ActorJSON.String), &st); err != nil {
		return nil, fmt.Errorf("decode actor %d: %w", r.ID, err)
	}
	a := &agents.Actor{
		Object:           r.object(),
		Facing:           st.Facing,
		Disposition:      st.Disposition,
		Player:           st.Player,
		Behavior:         st.Behavior,
		Skills:           st.Skills,
		Vitality:         st.Vitality,
		MaxVitality:      st.MaxVitality,
		Dead:             st.Dead,
		Immobile:         st.Immobile,
		DisappearOnDeath: st.DisappearOnDeath,
		Status:           st.Status,
		CurrentTarget:    st.CurrentTarget,
		RightHand:        st.RightHand,
		LeftHand:         st.LeftHand,
		Leader:           st.Leader,
		CycleCount:       st.CycleCount,
		Anim:             st.Anim,
	}
	a.RestoreActionCounter(st.ActionCounter)
	return a, nil
}

const insertObject = `INSERT INTO objects
	(save_id, id, name, kind, parent, u, v, z, height, cross_section, flags,
	 damage, max_range, two_handed, spell, skill, worn, actor_json)
	VALUES (:save_id, :id, :name, :kind, :parent, :u, :v, :z, :height, :cross_section, :flags,
	 :damage, :max_range, :two_handed, :spell, :skill, :worn, :actor_json)`

// Save writes s as a new slot and returns its ID. A snapshot without an
// ID gets a fresh one.
func (db *DB) Save(s *Snapshot) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Created.IsZero() {
		s.Created = time.Now()
	}
	if s.Name == "" {
		s.Name = fmt.Sprintf("tick %d", s.Tick)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT INTO saves (id, name, tick, created_at, size) VALUES (?, ?, ?, ?, ?)",
		s.ID, s.Name, s.Tick, s.Created.UnixMilli(), s.Size()); err != nil {
		return "", fmt.Errorf("insert save: %w", err)
	}

	for _, tag := range slices.Sorted(maps.Keys(s.Chunks)) {
		if _, err := tx.Exec("INSERT INTO chunks (save_id, tag, data) VALUES (?, ?, ?)",
			s.ID, tag, s.Chunks[tag]); err != nil {
			return "", fmt.Errorf("insert chunk %s: %w", tag, err)
		}
	}

	stmt, err := tx.PrepareNamed(insertObject)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for _, o := range s.Objects {
		if _, err := stmt.Exec(newObjectRow(s.ID, o)); err != nil {
			return "", fmt.Errorf("insert object %d: %w", o.ID, err)
		}
	}
	for _, a := range s.Actors {
		row, err := actorRow(s.ID, a)
		if err != nil {
			return "", err
		}
		if _, err := stmt.Exec(row); err != nil {
			return "", fmt.Errorf("insert actor %d: %w", a.ID, err)
		}
	}

	for _, th := range s.Threads {
		data, err := json.Marshal(th)
		if err != nil {
			return "", fmt.Errorf("encode thread %d: %w", th.ID, err)
		}
		if _, err := tx.Exec("INSERT INTO threads (save_id, id, state_json) VALUES (?, ?, ?)",
			s.ID, th.ID, string(data)); err != nil {
			return "", fmt.Errorf("insert thread %d: %w", th.ID, err)
		}
	}

	for i, ag := range s.Aggressions {
		if _, err := tx.Exec("INSERT INTO aggressions (save_id, seq, tick, attacker, target) VALUES (?, ?, ?, ?, ?)",
			s.ID, i, ag.Tick, ag.Attacker, ag.Target); err != nil {
			return "", fmt.Errorf("insert aggression: %w", err)
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES ('last_tick', ?), ('last_save', ?)",
		fmt.Sprintf("%d", s.Tick), s.ID); err != nil {
		return "", fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	slog.Info("world state saved",
		"save", s.ID,
		"tick", humanize.Comma(int64(s.Tick)),
		"objects", len(s.Objects)+len(s.Actors),
		"chunks", humanize.Bytes(uint64(s.Size())),
	)
	return s.ID, nil
}

// Load reads the slot id. Actors come back in ID order, ready to be
// registered before the chunks are restored.
func (db *DB) Load(id string) (*Snapshot, error) {
	var info SaveInfo
	if err := db.conn.Get(&info, "SELECT id, name, tick, created_at, size FROM saves WHERE id = ?", id); err != nil {
		return nil, noSave(id, err)
	}
	s := &Snapshot{
		ID:      info.ID,
		Name:    info.Name,
		Tick:    info.Tick,
		Created: time.UnixMilli(info.Created),
		Chunks:  make(map[string][]byte),
	}

	var chunks []struct {
		Tag  string `db:"tag"`
		Data []byte `db:"data"`
	}
	if err := db.conn.Select(&chunks, "SELECT tag, data FROM chunks WHERE save_id = ?", id); err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	for _, c := range chunks {
		s.Chunks[c.Tag] = c.Data
	}

	var rows []objectRow
	if err := db.conn.Select(&rows, "SELECT * FROM objects WHERE save_id = ? ORDER BY id", id); err != nil {
		return nil, fmt.Errorf("load objects: %w", err)
	}
	for _, r := range rows {
		if !r.ActorJSON.Valid {
			o := r.object()
			s.Objects = append(s.Objects, &o)
			continue
		}
		a, err := r.actor()
		if err != nil {
			return nil, err
		}
		s.Actors = append(s.Actors, a)
	}

	var threads []string
	if err := db.conn.Select(&threads, "SELECT state_json FROM threads WHERE save_id = ? ORDER BY id", id); err != nil {
		return nil, fmt.Errorf("load threads: %w", err)
	}
	for _, data := range threads {
		var th script.ThreadState
		if err := json.Unmarshal([]byte(data), &th); err != nil {
			return nil, fmt.Errorf("decode thread: %w", err)
		}
		s.Threads = append(s.Threads, th)
	}

	if err := db.conn.Select(&s.Aggressions,
		"SELECT tick, attacker, target FROM aggressions WHERE save_id = ? ORDER BY seq", id); err != nil {
		return nil, fmt.Errorf("load aggressions: %w", err)
	}

	slog.Info("world state loaded",
		"save", s.ID,
		"tick", humanize.Comma(int64(s.Tick)),
		"objects", len(s.Objects)+len(s.Actors),
		"chunks", humanize.Bytes(uint64(s.Size())),
		"age", humanize.Time(s.Created),
	)
	return s, nil
}

// Latest returns the most recently written slot.
func (db *DB) Latest() (SaveInfo, error) {
	var info SaveInfo
	err := db.conn.Get(&info, "SELECT id, name, tick, created_at, size FROM saves ORDER BY created_at DESC, tick DESC LIMIT 1")
	if err != nil {
		return info, noSave("latest", err)
	}
	return info, nil
}

// Saves lists every slot, newest first.
func (db *DB) Saves() ([]SaveInfo, error) {
	var out []SaveInfo
	err := db.conn.Select(&out, "SELECT id, name, tick, created_at, size FROM saves ORDER BY created_at DESC, tick DESC")
	return out, err
}

// Delete removes a slot and everything in it.
func (db *DB) Delete(id string) error {
	res, err := db.conn.Exec("DELETE FROM saves WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete save %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete save %s: %w", id, ErrNoSave)
	}
	return nil
}

// Prune keeps the newest keep slots and deletes the rest.
func (db *DB) Prune(keep int) (int, error) {
	saves, err := db.Saves()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range saves[min(keep, len(saves)):] {
		if err := db.Delete(s.ID); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		slog.Debug("old saves pruned", "count", n, "kept", keep)
	}
	return n, nil
}
