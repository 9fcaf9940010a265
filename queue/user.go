package queue

// UserID is the opaque slack identifier of a user waiting in line (i.e. U0A8RXUPSP)
type UserID string

// DisplayInfo holds what we know about how to present a user. An empty field means
// the value is unknown
type DisplayInfo struct {
	RealName string
	Handle   string
}

// Name returns the real name if known or falls back to the raw user id
func (d DisplayInfo) Name(id UserID) string {
	if d.RealName != "" {
		return d.RealName
	}

	return string(id)
}

// Directory is implemented by any value that has the Lookup method. A miss is reported
// with ok set to false and never as a failure
type Directory interface {
	Lookup(id UserID) (info DisplayInfo, ok bool)
}

// DirectoryRecord is one entry of a bulk user listing
type DirectoryRecord struct {
	ID       UserID
	RealName string
	Handle   string
}

// UserDirectory is a read-only Directory populated once from a bulk listing
type UserDirectory struct {
	users map[UserID]DisplayInfo
}

// NewUserDirectory creates a UserDirectory from the given records. When an id appears
// more than once, the last record wins
func NewUserDirectory(records ...DirectoryRecord) (ud *UserDirectory) {
	ud = new(UserDirectory)
	ud.users = make(map[UserID]DisplayInfo, len(records))

	for _, r := range records {
		ud.users[r.ID] = DisplayInfo{RealName: r.RealName, Handle: r.Handle}
	}

	return ud
}

// Lookup returns the display info for the user id
func (ud *UserDirectory) Lookup(id UserID) (info DisplayInfo, ok bool) {
	if ud == nil {
		return DisplayInfo{}, false
	}

	info, ok = ud.users[id]
	return info, ok
}

// Len returns the number of users known to the directory
func (ud *UserDirectory) Len() int {
	if ud == nil {
		return 0
	}

	return len(ud.users)
}
