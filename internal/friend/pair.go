package friend

import "time"

// Pair transitions. Each one is evaluated against the freshly loaded edge
// set inside Store.UpdatePair, so a transition never acts on stale state.
// The pair is always oriented from the acting user: p.A is the actor.

func sendRequest(p *Pair, now time.Time) error {
	if p.AB != nil {
		return alreadyExists(p.AB.Status)
	}
	if p.BA != nil {
		return alreadyExists(p.BA.Status)
	}
	p.AB = &Relation{User: p.A, Friend: p.B, Status: StatusPending, CreatedAt: now}
	return nil
}

// acceptRequest turns pending B->A into two accepted edges. When B->A is
// already accepted, a missing or stale A->B is rewritten so a retried
// accept converges instead of failing.
func acceptRequest(p *Pair, now time.Time) error {
	if p.BA == nil {
		return ErrRequestNotFound
	}
	switch p.BA.Status {
	case StatusPending:
		p.BA.Status = StatusAccepted
		p.BA.AcceptedAt = &now
		p.AB = &Relation{User: p.A, Friend: p.B, Status: StatusAccepted, CreatedAt: now, AcceptedAt: &now}
		return nil
	case StatusAccepted:
		if p.AB == nil || p.AB.Status != StatusAccepted {
			at := now
			if p.BA.AcceptedAt != nil {
				at = *p.BA.AcceptedAt
			}
			p.AB = &Relation{User: p.A, Friend: p.B, Status: StatusAccepted, CreatedAt: now, AcceptedAt: &at, GamesPlayedTogether: p.BA.GamesPlayedTogether}
		}
		return nil
	default:
		return ErrRequestNotFound
	}
}

func declineRequest(p *Pair) (*Relation, error) {
	if p.BA == nil || p.BA.Status != StatusPending {
		return nil, ErrRequestNotFound
	}
	removed := p.BA
	p.BA = nil
	return removed, nil
}

func unfriend(p *Pair) (*Relation, error) {
	var removed *Relation
	if p.BA != nil && p.BA.Status == StatusAccepted {
		removed = p.BA
		p.BA = nil
	}
	if p.AB != nil && p.AB.Status == StatusAccepted {
		removed = p.AB
		p.AB = nil
	}
	if removed == nil {
		return nil, ErrNotFriends
	}
	return removed, nil
}

func block(p *Pair, now time.Time) {
	p.BA = nil
	p.AB = &Relation{User: p.A, Friend: p.B, Status: StatusBlocked, CreatedAt: now, BlockedAt: &now}
}

func unblock(p *Pair) (*Relation, error) {
	if p.AB == nil || p.AB.Status != StatusBlocked {
		return nil, ErrBlockNotFound
	}
	removed := p.AB
	p.AB = nil
	return removed, nil
}

func recordGame(p *Pair) error {
	if p.State() != StateFriends {
		return ErrNotFriends
	}
	p.AB.GamesPlayedTogether++
	p.BA.GamesPlayedTogether++
	return nil
}
