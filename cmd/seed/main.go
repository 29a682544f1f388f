// Command seed loads sample exams: a computer science quiz under a generated
// code and one exam per pool member so every pool resolves.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/joyat/exam-portal/internal/app"
	"github.com/joyat/exam-portal/internal/config"
	"github.com/joyat/exam-portal/internal/exam"
)

func q(text, a, b, c, d, correct string) exam.Question {
	return exam.Question{
		Question: text,
		Options:  map[string]string{"A": a, "B": b, "C": c, "D": d},
		Correct:  correct,
	}
}

var sampleQuiz = exam.NewExamInput{
	Title:    "Sample Computer Science Quiz",
	Duration: 30,
	Questions: []exam.Question{
		q("What does CPU stand for?", "Central Processing Unit", "Computer Personal Unit", "Central Program Unit", "Computer Processing Unit", "A"),
		q(`Which programming language is known as the "mother of all languages"?`, "Python", "Java", "C", "Assembly", "C"),
		q("What is the time complexity of binary search?", "O(n)", "O(log n)", "O(n^2)", "O(1)", "B"),
	},
}

var poolQuestions = map[string][]exam.Question{
	"BIOLOGY": {
		q("Which organelle produces most of a cell's ATP?", "Nucleus", "Mitochondrion", "Ribosome", "Golgi apparatus", "B"),
		q("DNA is made of which building blocks?", "Amino acids", "Fatty acids", "Nucleotides", "Monosaccharides", "C"),
	},
	"COMPSCI": {
		q("Which data structure is first-in, first-out?", "Stack", "Queue", "Tree", "Heap", "B"),
		q("What does HTTP stand for?", "HyperText Transfer Protocol", "High Transfer Text Protocol", "Hyper Terminal Transport Protocol", "Host Transfer Protocol", "A"),
	},
	"APTITUDE": {
		q("What is the next number: 2, 4, 8, 16, ...?", "18", "24", "32", "20", "C"),
		q("If all bloops are razzies and all razzies are lazzies, are all bloops lazzies?", "Yes", "No", "Only some", "Cannot tell", "A"),
	},
}

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	cfg := config.Load(*envFile)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc, closeStore, err := app.NewService(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer closeStore()

	code, err := svc.CreateExam(ctx, sampleQuiz)
	if err != nil {
		log.Fatalf("sample quiz: %v", err)
	}
	log.Printf("sample exam %q created: code %s, %d minutes, %d questions",
		sampleQuiz.Title, code, sampleQuiz.Duration, len(sampleQuiz.Questions))

	settings, err := app.Settings(cfg)
	if err != nil {
		log.Fatalf("settings: %v", err)
	}
	pools := make([]string, 0, len(settings.Pools.Pools))
	for name := range settings.Pools.Pools {
		pools = append(pools, name)
	}
	sort.Strings(pools)

	for _, pool := range pools {
		questions, ok := poolQuestions[pool]
		if !ok {
			questions = sampleQuiz.Questions
		}
		for i, member := range settings.Pools.Pools[pool] {
			in := exam.NewExamInput{
				Title:     fmt.Sprintf("%s Paper %d", pool, i+1),
				Duration:  20,
				Questions: questions,
			}
			err := svc.CreateExamWithCode(ctx, member, in)
			switch {
			case errors.Is(err, exam.ErrDuplicateCode):
				log.Printf("pool %s: %s already exists", pool, member)
			case err != nil:
				log.Fatalf("pool %s: %s: %v", pool, member, err)
			default:
				log.Printf("pool %s: created %s", pool, member)
			}
		}
	}
}
