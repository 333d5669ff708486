package swarm

import (
	"fmt"
	"strings"
)

const (
	// TblParticles is the name of the sql database table that contains
	// positions, values, personal bests and inertia for particles for each
	// iteration.
	TblParticles = "swarmparticles"
	// TblBest is the name of the sql database table that contains the best
	// position for each swarm at each iteration.
	TblBest = "swarmbest"
)

func (s *Swarm) initdb() error {
	if s.db == nil {
		return nil
	}

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + TblParticles + " (swarm INTEGER, particle INTEGER, iter INTEGER, val REAL, best REAL, inertia REAL" + s.xdbsql("define") + ");",
		"CREATE TABLE IF NOT EXISTS " + TblBest + " (swarm INTEGER, iter INTEGER, val REAL, resets INTEGER" + s.xdbsql("define") + ");",
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("swarm %v: create trace tables: %w", s.Id, err)
		}
	}
	return nil
}

func (s *Swarm) xdbsql(op string) string {
	var b strings.Builder
	for i := 0; i < s.box.Dims(); i++ {
		switch op {
		case "?":
			b.WriteString(",?")
		case "define":
			fmt.Fprintf(&b, ",x%v REAL", i)
		case "x":
			fmt.Fprintf(&b, ",x%v", i)
		default:
			panic("invalid db op " + op)
		}
	}
	return b.String()
}

func pos2iface(pos []float64) []interface{} {
	iface := make([]interface{}, 0, len(pos))
	for _, v := range pos {
		iface = append(iface, v)
	}
	return iface
}

// updateDb records the current particle states and the swarm's best point
// for the current epoch.
func (s *Swarm) updateDb() (err error) {
	if s.db == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("swarm %v: trace: %w", s.Id, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	s1 := "INSERT INTO " + TblParticles + " (swarm,particle,iter,val,best,inertia" + s.xdbsql("x") + ") VALUES (?,?,?,?,?,?" + s.xdbsql("?") + ");"
	for _, p := range s.pop {
		args := []interface{}{s.Id, p.Id, s.epoch, p.Val, p.BestVal, p.Inertia}
		args = append(args, pos2iface(p.Pos)...)
		if _, err := tx.Exec(s1, args...); err != nil {
			return fmt.Errorf("swarm %v: trace particle %v: %w", s.Id, p.Id, err)
		}
	}

	s2 := "INSERT INTO " + TblBest + " (swarm,iter,val,resets" + s.xdbsql("x") + ") VALUES (?,?,?,?" + s.xdbsql("?") + ");"
	args := []interface{}{s.Id, s.epoch, s.bestVal, s.resets}
	args = append(args, pos2iface(s.bestPos)...)
	if _, err := tx.Exec(s2, args...); err != nil {
		return fmt.Errorf("swarm %v: trace best: %w", s.Id, err)
	}
	return nil
}
