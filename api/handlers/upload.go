package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/gorilla/mux"

	"github.com/RoshiKK/emergency-response-api/config"
)

// Upload handles incident photo retrieval and signed browser uploads
type Upload struct {
	Config config.Config
}

// ImageHandler resolves a stored public ID to its Cloudinary delivery URL
// and redirects the caller there.
func (u Upload) ImageHandler(w http.ResponseWriter, r *http.Request) {
	publicID := mux.Vars(r)["image_id"]

	cld, err := cloudinary.NewFromParams(u.Config.CloudinaryCloudName, u.Config.CloudinaryAPIKey, u.Config.CloudinaryAPISecret)
	if err != nil {
		config.ErrorStatus("failed to create cloudinary client", http.StatusInternalServerError, w, err)
		return
	}

	img, err := cld.Image(publicID)
	if err != nil {
		config.ErrorStatus("failed to resolve image", http.StatusNotFound, w, err)
		return
	}
	url, err := img.String()
	if err != nil {
		config.ErrorStatus("failed to build image URL", http.StatusInternalServerError, w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// SignatureHandler signs an upload request so the browser can push the
// photo straight to Cloudinary without the file passing through here.
func (u Upload) SignatureHandler(w http.ResponseWriter, r *http.Request) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	h := hmac.New(sha1.New, []byte(u.Config.CloudinaryAPISecret))
	h.Write([]byte("timestamp=" + timestamp + "&upload_preset=" + u.Config.CloudinaryPreset))
	signature := hex.EncodeToString(h.Sum(nil))

	respondJSON(w, http.StatusOK, map[string]string{
		"timestamp": timestamp,
		"signature": signature,
		"apiKey":    u.Config.CloudinaryAPIKey,
	}, "")
}
