package extract

// extractTXT 는 BOM 을 고려해 텍스트 파일을 디코딩한다.
func extractTXT(data []byte) (string, error) {
	return decodeText(data)
}
