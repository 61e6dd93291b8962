package common

// SessionIDSet is the data structure for a set of session IDs
type SessionIDSet map[SessionID]struct{}

// Add adds a session ID to SessionIDSet
func (ss SessionIDSet) Add(id SessionID) {
	ss[id] = struct{}{}
}

// Del removes a session ID from SessionIDSet
func (ss SessionIDSet) Del(id SessionID) {
	delete(ss, id)
}

// Contains checks if session ID is in SessionIDSet
func (ss SessionIDSet) Contains(id SessionID) bool {
	_, ok := ss[id]
	return ok
}

// ToList convert SessionIDSet to a slice of session IDs
func (ss SessionIDSet) ToList() []SessionID {
	list := make([]SessionID, 0, len(ss))
	for id := range ss {
		list = append(list, id)
	}
	return list
}
