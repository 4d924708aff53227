package handler

import (
	"encoding/json"
	"net/http"
)

// Health はヘルスチェック用のエンドポイント。外部依存の状態は確認しない。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
