package nodeconn

// Đăng ký node với hub. Sent by the node right after dialing; the port must
// match a pre-registered node record or the hub rejects the handshake.
type Register struct {
	Port int    `json:"port"`
	Name string `json:"name"`
}
type RegisterResp struct {
	NodeID int64 `json:"nodeId"`
}

func (*Register) OpName() string { return "register" }

func NewRegister(port int, name string) *Register {
	return &Register{
		Port: port,
		Name: name,
	}
}
func NewRegisterResp(nodeID int64) *RegisterResp {
	return &RegisterResp{
		NodeID: nodeID,
	}
}
func (c *Client) Register(msg *Register, opts ...RequestOption) (*RegisterResp, error) {
	return Request[RegisterResp](c.conn, msg, pickTimeout(opts, TimeoutShort))
}

// Hỏi dung lượng lưu trữ của node.
type GetStorageInfo struct {
}
type GetStorageInfoResp struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

func (*GetStorageInfo) OpName() string { return "get_storage_info" }

func NewGetStorageInfo() *GetStorageInfo {
	return &GetStorageInfo{}
}
func NewGetStorageInfoResp(used int64, total int64) *GetStorageInfoResp {
	return &GetStorageInfoResp{
		Used:  used,
		Total: total,
	}
}
func (c *Client) GetStorageInfo(msg *GetStorageInfo, opts ...RequestOption) (*GetStorageInfoResp, error) {
	return Request[GetStorageInfoResp](c.conn, msg, pickTimeout(opts, TimeoutShort))
}

// StorageUpdate is a fire-and-forget report node->hub.
type StorageUpdate struct {
	StorageUsed  int64 `json:"storageUsed"`
	StorageTotal int64 `json:"storageTotal"`
}

func (*StorageUpdate) OpName() string { return "storage_update" }

func NewStorageUpdate(used int64, total int64) *StorageUpdate {
	return &StorageUpdate{
		StorageUsed:  used,
		StorageTotal: total,
	}
}

// Heartbeat keeps the node's online status fresh between reconciliations.
// Best-effort; correctness does not depend on it.
type Heartbeat struct {
}

func (*Heartbeat) OpName() string { return "heartbeat" }

func NewHeartbeat() *Heartbeat {
	return &Heartbeat{}
}
