package domain

// SubmitMemoryRequest is the raw submission payload before sanitization
type SubmitMemoryRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	Color     string `json:"color"`
	Animation string `json:"animation"`
	Tag       string `json:"tag"`
	SubTag    string `json:"sub_tag"`
	UserUUID  string `json:"user_uuid"`
}

// UserStatusResponse is the pre-flight ban/quota check result
type UserStatusResponse struct {
	CanSubmit       bool   `json:"canSubmit"`
	IsBanned        bool   `json:"isBanned"`
	MemoryCount     int64  `json:"memoryCount"`
	HasReachedLimit bool   `json:"hasReachedLimit"`
	IsOwner         bool   `json:"isOwner"`
	Reason          string `json:"reason,omitempty"`
}

// Identity is the (ip, uuid) pair used to attribute submissions for
// quota/ban purposes; either component may be absent.
type Identity struct {
	IP   string
	UUID string
}

// Known reports whether at least one identity component is present
func (id Identity) Known() bool {
	return id.IP != "" || id.UUID != ""
}
