package nodeconn

// Đẩy file media lên node. File bytes travel base64-encoded on the same
// channel as structured data; there is no separate binary plane.
type UploadFile struct {
	FileName   string `json:"fileName"`
	FileBuffer string `json:"fileBuffer"` // base64
	MimeType   string `json:"mimeType"`
	Folder     string `json:"folder"`
}
type UploadFileResp struct {
	StoragePath string `json:"storagePath"`
	StreamURL   string `json:"streamUrl"`
	Size        int64  `json:"size"`
}

func (*UploadFile) OpName() string { return "upload_file" }

func NewUploadFile(fileName string, fileBuffer string, mimeType string, folder string) *UploadFile {
	return &UploadFile{
		FileName:   fileName,
		FileBuffer: fileBuffer,
		MimeType:   mimeType,
		Folder:     folder,
	}
}
func NewUploadFileResp(storagePath string, streamURL string, size int64) *UploadFileResp {
	return &UploadFileResp{
		StoragePath: storagePath,
		StreamURL:   streamURL,
		Size:        size,
	}
}
func (c *Client) UploadFile(msg *UploadFile, opts ...RequestOption) (*UploadFileResp, error) {
	return Request[UploadFileResp](c.conn, msg, pickTimeout(opts, TimeoutUpload))
}

// Xóa một file trên node.
type DeleteFile struct {
	FilePath string `json:"filePath"`
}
type DeleteFileResp struct {
}

func (*DeleteFile) OpName() string { return "delete_file" }

func NewDeleteFile(filePath string) *DeleteFile {
	return &DeleteFile{
		FilePath: filePath,
	}
}
func NewDeleteFileResp() *DeleteFileResp {
	return &DeleteFileResp{}
}
func (c *Client) DeleteFile(msg *DeleteFile, opts ...RequestOption) (*DeleteFileResp, error) {
	return Request[DeleteFileResp](c.conn, msg, pickTimeout(opts, TimeoutShort))
}
