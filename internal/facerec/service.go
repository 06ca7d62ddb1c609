// Package facerec composes detection, landmarks, embedding and classification
// into a service that is safe for concurrent callers.
//
// Each model sits behind its own lock, so a detection never waits on an
// embedding in progress. The enrolled samples sit behind a reader/writer
// lock and are replaced as a whole.
package facerec

import (
	"fmt"
	"image"
	"log"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/kozaktomas/facerec/internal/classify"
	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/imaging"
	"github.com/kozaktomas/facerec/internal/model"
	"github.com/kozaktomas/facerec/internal/samples"
)

// Seed of the jitter generator. Jittered embeddings are reproducible for a
// fixed sequence of calls.
const jitterSeed = 5489

// Service is the face recognition service.
type Service struct {
	cfg Config

	detector *model.Resource[Detector]
	cnn      *model.Resource[Detector]
	shape    *model.Resource[ShapePredictor]
	embedder *model.Resource[Embedder]
	gender   *model.Resource[Classifier]
	age      *model.Resource[Classifier]

	samples *samples.Store

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// New creates a service and loads the configured models. The detector, shape
// predictor and embedding network are required; the others are loaded only
// when a path is configured.
func New(cfg Config, loaders Loaders) (*Service, error) {
	cfg = cfg.normalized()
	s := &Service{
		cfg:      cfg,
		detector: model.NewResource(string(KindDetector), orMissing(KindDetector, loaders.Detector)),
		cnn:      model.NewResource(string(KindCNNDetector), orMissing(KindCNNDetector, loaders.CNNDetector)),
		shape:    model.NewResource(string(KindShape), orMissing(KindShape, loaders.Shape)),
		embedder: model.NewResource(string(KindEmbedding), orMissing(KindEmbedding, loaders.Embedding)),
		gender:   model.NewResource(string(KindGender), orMissing(KindGender, loaders.Gender)),
		age:      model.NewResource(string(KindAge), orMissing(KindAge, loaders.Age)),
		samples:  samples.NewStore(),
		rnd:      rand.New(rand.NewPCG(jitterSeed, jitterSeed)),
	}

	required := []struct {
		kind ModelKind
		path string
	}{
		{KindDetector, cfg.DetectorModel},
		{KindShape, cfg.ShapeModel},
		{KindEmbedding, cfg.EmbeddingModel},
	}
	for _, r := range required {
		if r.path == "" {
			s.Close()
			return nil, model.ResourceLoadError(fmt.Sprintf("%s model path is not configured", r.kind), nil)
		}
		if err := s.Reload(r.kind, r.path); err != nil {
			s.Close()
			return nil, err
		}
	}

	optional := []struct {
		kind ModelKind
		path string
	}{
		{KindCNNDetector, cfg.CNNDetectorModel},
		{KindGender, cfg.GenderModel},
		{KindAge, cfg.AgeModel},
	}
	for _, o := range optional {
		if o.path == "" {
			continue
		}
		if err := s.Reload(o.kind, o.path); err != nil {
			s.Close()
			return nil, err
		}
	}

	return s, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Detect finds faces with the frontal detector, ordered left to right.
func (s *Service) Detect(img image.Image) ([]*Face, error) {
	return s.detect(s.detector, img)
}

// DetectCNN finds faces with the CNN detector, ordered left to right.
func (s *Service) DetectCNN(img image.Image) ([]*Face, error) {
	return s.detect(s.cnn, img)
}

// DetectBytes decodes data and runs Detect, or DetectCNN when cnn is set.
func (s *Service) DetectBytes(data []byte, cnn bool) ([]*Face, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	if cnn {
		return s.DetectCNN(img)
	}
	return s.Detect(img)
}

func (s *Service) detect(res *model.Resource[Detector], img image.Image) ([]*Face, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, model.ImageDecodeError("image has no pixels", nil)
	}

	var faces []*Face
	err := model.Guard(func() error {
		frame, scale := imaging.Upsample(img, s.cfg.MinImageSize)
		rects, err := model.Invoke(res, func(d Detector) ([]image.Rectangle, error) {
			return d.Detect(frame)
		})
		if err != nil {
			return err
		}

		sort.SliceStable(rects, func(i, j int) bool { return rects[i].Min.X < rects[j].Min.X })
		faces = make([]*Face, 0, len(rects))
		for _, r := range rects {
			faces = append(faces, newFace(frame, r, scale))
		}
		return nil
	})
	if err != nil {
		return nil, boundary("detect", err)
	}
	return faces, nil
}

// FaceAt wraps a caller supplied rectangle of img as a Face, for recognizing
// a region located elsewhere.
func (s *Service) FaceAt(img image.Image, rect image.Rectangle) (*Face, error) {
	if img == nil {
		return nil, model.ImageDecodeError("image is nil", nil)
	}
	r := rect.Intersect(img.Bounds())
	if r.Empty() {
		return nil, model.ImageDecodeError(fmt.Sprintf("rectangle %v is outside the image", rect), nil)
	}
	return newFace(img, r, 1), nil
}

// Recognize computes the embedding of face and returns it with the landmarks
// used for alignment. With jittering enabled the embedding is the mean over
// the jittered chips, all embedded under a single hold of the embedding lock.
func (s *Service) Recognize(face *Face) (embedding.Embedding, imaging.Shape, error) {
	var (
		emb   embedding.Embedding
		shape imaging.Shape
	)
	err := model.Guard(func() error {
		var err error
		shape, err = s.landmarks(face)
		if err != nil {
			return err
		}

		chip := imaging.ExtractChip(face.frame, shape, face.frameRect, s.cfg.Size, s.cfg.Padding)
		chips := []image.Image{chip}
		if s.cfg.Jittering > 0 {
			chips = s.jitter(chip, s.cfg.Jittering)
		}

		embs, err := model.Invoke(s.embedder, func(e Embedder) ([]embedding.Embedding, error) {
			return e.Embed(chips)
		})
		if err != nil {
			return err
		}
		if len(embs) != len(chips) {
			return model.RecognizeError(fmt.Sprintf("embedding network returned %d vectors for %d chips", len(embs), len(chips)), nil)
		}
		emb = embedding.Mean(embs)
		return nil
	})
	if err != nil {
		return embedding.Embedding{}, nil, boundary("recognize", err)
	}
	return emb, shape.Scale(face.scale), nil
}

// Gender estimates the gender of face.
func (s *Service) Gender(face *Face) (GenderEstimate, error) {
	probs, err := s.predict(s.gender, face, "gender", GenderClasses)
	if err != nil {
		return GenderEstimate{}, err
	}
	return estimateGender(probs), nil
}

// Age estimates the age of face.
func (s *Service) Age(face *Face) (AgeEstimate, error) {
	probs, err := s.predict(s.age, face, "age", AgeClasses)
	if err != nil {
		return AgeEstimate{}, err
	}
	return EstimateAge(probs), nil
}

// predict runs a classifier on the aligned chip of face and checks that it
// returned one probability per class.
func (s *Service) predict(res *model.Resource[Classifier], face *Face, op string, classes int) ([]float32, error) {
	var probs []float32
	err := model.Guard(func() error {
		// Fail fast on a missing model before paying for landmarks.
		if !res.Loaded() {
			return model.ResourceLoadError(op, model.ErrNotLoaded)
		}
		shape, err := s.landmarks(face)
		if err != nil {
			return err
		}
		chip := imaging.ExtractChip(face.frame, shape, face.frameRect, s.cfg.Size, s.cfg.Padding)
		probs, err = model.Invoke(res, func(c Classifier) ([]float32, error) {
			return c.Predict(chip)
		})
		if err != nil {
			return err
		}
		if len(probs) != classes {
			return model.RecognizeError(fmt.Sprintf("%s network returned %d classes, want %d", op, len(probs), classes), nil)
		}
		return nil
	})
	if err != nil {
		return nil, boundary(op, err)
	}
	return probs, nil
}

// landmarks returns the cached shape of face, running the shape predictor
// on first use.
func (s *Service) landmarks(face *Face) (imaging.Shape, error) {
	if face == nil {
		return nil, model.RecognizeError("face is nil", nil)
	}
	face.mu.Lock()
	defer face.mu.Unlock()

	if face.shaped {
		return face.shape, nil
	}
	shape, err := model.Invoke(s.shape, func(p ShapePredictor) (imaging.Shape, error) {
		return p.Predict(face.frame, face.frameRect)
	})
	if err != nil {
		return nil, err
	}
	face.shape = shape
	face.shaped = true
	return shape, nil
}

func (s *Service) jitter(chip image.Image, n int) []image.Image {
	s.rndMu.Lock()
	crops := imaging.Jitter(chip, n, s.rnd)
	s.rndMu.Unlock()

	out := make([]image.Image, len(crops))
	for i, c := range crops {
		out[i] = c
	}
	return out
}

// SetSamples replaces the enrolled samples with parallel arrays. Embeddings
// without a matching category are stored but never vote.
func (s *Service) SetSamples(embs []embedding.Embedding, cats []int32) {
	if len(embs) != len(cats) {
		log.Printf("WARNING: %d embeddings but %d categories, unmatched samples will not vote", len(embs), len(cats))
	}
	s.samples.ReplaceParallel(embs, cats)
}

// SetSampleSet replaces the enrolled samples.
func (s *Service) SetSampleSet(list []samples.Sample) {
	s.samples.Replace(list)
}

// SampleCount returns the number of enrolled samples.
func (s *Service) SampleCount() int {
	return s.samples.Len()
}

// Classify returns the category of e among the enrolled samples, or classify.NoMatch.
func (s *Service) Classify(e embedding.Embedding) int {
	cat := classify.NoMatch
	s.samples.Read(func(set *samples.Set) {
		cat = classify.Classify(e, set)
	})
	return cat
}

// ClassifyTolerance is Classify ignoring samples closer than tolerance.
func (s *Service) ClassifyTolerance(e embedding.Embedding, tolerance float64) int {
	cat := classify.NoMatch
	s.samples.Read(func(set *samples.Set) {
		cat = classify.ClassifyTolerance(e, set, tolerance)
	})
	return cat
}

// Nearest returns up to k enrolled samples closest to e.
func (s *Service) Nearest(e embedding.Embedding, k int) []samples.Neighbor {
	var out []samples.Neighbor
	s.samples.Read(func(set *samples.Set) {
		out = set.Nearest(e, k)
	})
	return out
}

// Reload replaces one model. On failure the previous model stays in use.
func (s *Service) Reload(kind ModelKind, path string) error {
	var err error
	switch kind {
	case KindDetector:
		err = s.detector.Reload(path)
	case KindCNNDetector:
		err = s.cnn.Reload(path)
	case KindShape:
		err = s.shape.Reload(path)
	case KindEmbedding:
		err = s.embedder.Reload(path)
	case KindGender:
		err = s.gender.Reload(path)
	case KindAge:
		err = s.age.Reload(path)
	default:
		return model.ResourceLoadError(string(kind), ErrUnknownModel)
	}
	if err != nil {
		log.Printf("WARNING: failed to load %s model from %s: %v", kind, path, err)
	}
	return err
}

// Models reports the state of every model resource.
func (s *Service) Models() []ModelInfo {
	infos := []struct {
		kind   ModelKind
		loaded bool
		path   string
	}{
		{KindDetector, s.detector.Loaded(), s.detector.Path()},
		{KindCNNDetector, s.cnn.Loaded(), s.cnn.Path()},
		{KindShape, s.shape.Loaded(), s.shape.Path()},
		{KindEmbedding, s.embedder.Loaded(), s.embedder.Path()},
		{KindGender, s.gender.Loaded(), s.gender.Path()},
		{KindAge, s.age.Loaded(), s.age.Path()},
	}
	out := make([]ModelInfo, len(infos))
	for i, m := range infos {
		out[i] = ModelInfo{Kind: m.kind, Path: m.path, Loaded: m.loaded}
	}
	return out
}

// Close releases every model.
func (s *Service) Close() {
	closers := []interface{ Close() error }{s.detector, s.cnn, s.shape, s.embedder, s.gender, s.age}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Printf("WARNING: failed to close model: %v", err)
		}
	}
}

// boundary makes sure errors leaving the service carry a failure kind.
func boundary(op string, err error) error {
	return model.Tag(model.Unknown, op, err)
}
