package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stylistapi/models"
	"stylistapi/stylist"
	"stylistapi/tasks"
	"stylistapi/test"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateClothingWithoutAnalysis(t *testing.T) {
	e, db, q := newTestServer(t)
	user := test.FakeUser(db, "", "")

	in := map[string]interface{}{
		"name":          "Linen shirt",
		"file_name":     "IMG_0042.JPG",
		"clothing_type": "top",
		"analyze":       false,
		"colors":        []string{"#f7f7f5"},
		"fit":           "loose",
		"formality_min": 2,
		"formality_max": 5,
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("POST", "/shop/clothes/create", test.UserPk(user), in))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ClothingCreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.FileUploadUrl, fmt.Sprintf("https://fakebucketurl.com/clothes/%d/", user.ID))
	assert.True(t, strings.HasSuffix(resp.FileUploadUrl, ".jpg"))
	assert.Equal(t, "idle", resp.ClothingResponse.ProcessingStatus)
	assert.Equal(t, "uploaded", resp.ClothingResponse.ImageStatus)
	assert.Empty(t, q.enqueued())

	var stored models.Clothing
	require.NoError(t, db.First(&stored, resp.ClothingResponse.ID).Error)
	assert.Equal(t, user.ID, stored.OwnerID)
	assert.Equal(t, "loose", stored.Fit)
	require.Len(t, stored.Colors, 1)
	assert.Equal(t, 2.0, *stored.FormalityMin)
}

func TestCreateClothingQueuesAnalysis(t *testing.T) {
	e, db, q := newTestServer(t)
	user := test.FakeUser(db, "", "")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("POST", "/shop/clothes/create", test.UserPk(user), map[string]interface{}{
		"file_name":     "jacket.png",
		"clothing_type": "layer",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ClothingCreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.ClothingResponse.ProcessingStatus)
	assert.True(t, resp.ClothingResponse.AlertWhenProcessed)

	queued := q.enqueued()
	require.Len(t, queued, 1)
	assert.Equal(t, tasks.TypeClothingAnalyze, queued[0].Type)
	assert.Equal(t, tasks.QueueGenerate, queued[0].Queue)
	assert.Equal(t, tasks.ClothingAnalysisTaskID(resp.ClothingResponse.ID), queued[0].ID)
	assert.Equal(t, 3, queued[0].MaxRetry)

	// the detail view shows the queued task
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("GET", fmt.Sprintf("/shop/clothes/%d", resp.ClothingResponse.ID), test.UserPk(user), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var detail ClothingDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.NotNil(t, detail.AnalysisTask)
	assert.Equal(t, "pending", detail.AnalysisTask.State)
	require.NotNil(t, detail.Uri)
	assert.Equal(t, "https://cdn.example.com/"+*detail.ImageURL, *detail.Uri)
}

func TestCreateClothingFallsBackWhenQueueFails(t *testing.T) {
	e, db, q := newTestServer(t)
	q.err = fmt.Errorf("redis is down")
	user := test.FakeUser(db, "", "")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("POST", "/shop/clothes/create", test.UserPk(user), map[string]interface{}{
		"file_name":     "jacket.png",
		"clothing_type": "layer",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp ClothingCreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "idle", resp.ClothingResponse.ProcessingStatus)

	var stored models.Clothing
	db.First(&stored, resp.ClothingResponse.ID)
	assert.Equal(t, "idle", stored.ProcessingStatus)
}

func TestCreateClothingInvalidInput(t *testing.T) {
	e, db, _ := newTestServer(t)
	user := test.FakeUser(db, "", "")

	cases := []struct {
		name string
		in   map[string]interface{}
		want string
	}{
		{"missing type", map[string]interface{}{"file_name": "a.jpg"}, "ClothingType"},
		{"unknown type", map[string]interface{}{"file_name": "a.jpg", "clothing_type": "hat"}, "ClothingType"},
		{"missing file", map[string]interface{}{"clothing_type": "top"}, "FileName"},
		{"bad extension", map[string]interface{}{"file_name": "a.gif", "clothing_type": "top"}, "jpg"},
		{"bad colour", map[string]interface{}{"file_name": "a.jpg", "clothing_type": "top", "colors": []string{"red"}}, "Colors"},
		{"bad fit", map[string]interface{}{"file_name": "a.jpg", "clothing_type": "top", "fit": "baggy"}, "Fit"},
		{"bad season", map[string]interface{}{"file_name": "a.jpg", "clothing_type": "top", "season_scores": map[string]float64{"spring": 0.5}}, "SeasonScores"},
		{"inverted formality", map[string]interface{}{"file_name": "a.jpg", "clothing_type": "top", "formality_min": 8, "formality_max": 2}, "formality_min"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, test.NewJSONAuthRequest("POST", "/shop/clothes/create", test.UserPk(user), tc.in))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}

	var count int64
	db.Model(&models.Clothing{}).Where("owner_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)
}

func TestCreateClothingUnauthorized(t *testing.T) {
	e, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("POST", "/shop/clothes/create", "999999", map[string]interface{}{
		"file_name":     "a.jpg",
		"clothing_type": "top",
	}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListClothesGroupsBySlot(t *testing.T) {
	e, db, _ := newTestServer(t)
	user := test.FakeUser(db, "", "")
	test.FakeWardrobe(db, user.ID)
	donated := test.FakeClothing(db, user.ID, "top", "#aa0000", 1, 4)
	db.Model(donated).Update("availability", stylist.AvailabilityDonated)
	other := test.FakeUser(db, "Other", "other@example.com")
	test.FakeClothing(db, other.ID, "top", "#00aa00", 1, 4)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("GET", "/shop/clothes/list", test.UserPk(user), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClothesListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Tops, 2)
	assert.Len(t, resp.Bottoms, 2)
	assert.Len(t, resp.Shoes, 2)
	assert.Len(t, resp.Layers, 1)
	assert.Empty(t, resp.OnePieces)
	assert.Empty(t, resp.Accessories)
	for _, item := range resp.Tops {
		require.NotNil(t, item.Uri)
		assert.True(t, strings.HasPrefix(*item.Uri, "https://cdn.example.com/clothes/"))
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("GET", "/shop/clothes/list?availability=donated", test.UserPk(user), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tops, 1)
	assert.Equal(t, donated.ID, resp.Tops[0].ID)
	assert.Empty(t, resp.Bottoms)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("GET", "/shop/clothes/list?availability=lost", test.UserPk(user), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClothingStatusAndWorn(t *testing.T) {
	e, db, _ := newTestServer(t)
	user := test.FakeUser(db, "", "")
	shirt := test.FakeClothing(db, user.ID, "top", "#f7f7f5", 3, 7)
	path := fmt.Sprintf("/shop/clothes/%d", shirt.ID)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("PUT", path+"/status", test.UserPk(user), ClothingStatusIn{Availability: "laundry"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var stored models.Clothing
	db.First(&stored, shirt.ID)
	assert.Equal(t, "laundry", stored.Availability)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("PUT", path+"/status", test.UserPk(user), ClothingStatusIn{Availability: "lost"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, test.NewJSONAuthRequest("POST", path+"/worn", test.UserPk(user), nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	db.First(&stored, shirt.ID)
	assert.Equal(t, 2, stored.WearCount)
	assert.NotNil(t, stored.LastWornAt)

	// other users cannot touch the garment
	other := test.FakeUser(db, "Other", "other@example.com")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("POST", path+"/worn", test.UserPk(other), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("GET", path, test.UserPk(other), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("GET", "/shop/clothes/abc", test.UserPk(user), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateClothingCompletesFailedAnalysis(t *testing.T) {
	e, db, _ := newTestServer(t)
	user := test.FakeUser(db, "", "")
	shirt := test.FakeClothing(db, user.ID, "top", "#f7f7f5", 3, 7)
	shirt.ProcessingStatus = "failed"
	shirt.ProcessErrorMessage = test.NewRefString("no garment detected")
	shirt.Colors = nil
	require.NoError(t, db.Save(shirt).Error)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("PUT", fmt.Sprintf("/shop/clothes/%d", shirt.ID), test.UserPk(user), map[string]interface{}{
		"name":   "White tee",
		"colors": []string{"#ffffff"},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored models.Clothing
	db.First(&stored, shirt.ID)
	assert.Equal(t, "White tee", stored.Name)
	assert.Equal(t, "completed", stored.ProcessingStatus)
	assert.Nil(t, stored.ProcessErrorMessage)
	require.Len(t, stored.Colors, 1)
}

func TestReanalyzeClothing(t *testing.T) {
	e, db, q := newTestServer(t)
	user := test.FakeUser(db, "", "")
	shirt := test.FakeClothing(db, user.ID, "top", "#f7f7f5", 3, 7)
	db.Model(shirt).Updates(map[string]interface{}{"processing_status": "failed", "process_retry_times": 3})

	// an archived attempt still holds the task id
	task, err := tasks.NewClothingAnalysisTask(shirt.ID)
	require.NoError(t, err)
	_, err = q.Enqueue(task, asynq.Queue(tasks.QueueGenerate), asynq.TaskID(tasks.ClothingAnalysisTaskID(shirt.ID)))
	require.NoError(t, err)

	path := fmt.Sprintf("/shop/clothes/%d/analyze", shirt.ID)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("POST", path, test.UserPk(user), nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	assert.Equal(t, []string{tasks.ClothingAnalysisTaskID(shirt.ID)}, q.deleted)
	require.Len(t, q.enqueued(), 1)
	var stored models.Clothing
	db.First(&stored, shirt.ID)
	assert.Equal(t, "pending", stored.ProcessingStatus)
	assert.Zero(t, stored.ProcessRetryTimes)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, test.NewJSONAuthRequest("POST", path, test.UserPk(user), nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
