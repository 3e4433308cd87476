package models

// ErrorResponse โครงสร้างมาตรฐานสำหรับการส่ง Error
type ErrorResponse struct {
	Status  int    `json:"status"`  // HTTP Status Code
	Message string `json:"message"` // รายละเอียดของ Error
}

// MessageResponse ใช้ตอบกลับเมื่อสำเร็จแต่ไม่มีข้อมูล (เช่น ลบ)
type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
